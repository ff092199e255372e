package cfg

import (
	"sync"
)

var (
	loader     Loader
	loaderOnce sync.Once
)

// Loader resolves the process configuration. Implementations decide where
// the values come from (yaml file, fixed test values).
type Loader interface {
	Load() (*Config, error)
}

func NewLoader(l Loader) (Loader, error) {
	loaderOnce.Do(func() {
		loader = l
	})
	return loader, nil
}
