package log

import "context"

// NopLogger discards everything. Used in tests and as a safe default.
type NopLogger struct{}

func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Debug(ctx context.Context, format string, args ...interface{}) {}
func (l *NopLogger) Info(ctx context.Context, format string, args ...interface{})  {}
func (l *NopLogger) Warn(ctx context.Context, format string, args ...interface{})  {}
func (l *NopLogger) Error(ctx context.Context, format string, args ...interface{}) {}
