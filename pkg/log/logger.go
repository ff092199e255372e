package log

import "context"

// Logger is the logging contract shared by every service in the analyzer.
// The context is carried so implementations can pick up request scoped
// values (trace ids, repo names) without changing call sites.
type Logger interface {
	Debug(ctx context.Context, format string, args ...interface{})
	Info(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, format string, args ...interface{})
}
