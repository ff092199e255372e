package cfg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfgIns     *Config
	cfgInsOnce sync.Once
	cfgMutex   sync.RWMutex
)

// ViperLoader reads cfg/yaml/mode.yaml, overlays AGILEAI_* environment
// variables and keeps the snapshot fresh while the file changes on disk.
type ViperLoader struct {
	configChangeCallbacks []func(*Config)
}

func NewViperLoader() (*ViperLoader, error) {
	return &ViperLoader{
		configChangeCallbacks: make([]func(*Config), 0),
	}, nil
}

func (vl *ViperLoader) Load() (*Config, error) {
	var err error
	cfgInsOnce.Do(func() {
		err = vl.loadConfig()
		if err == nil && vl.IsWatchChange() {
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := vl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
		}
	})

	if err != nil {
		return nil, err
	}

	cfgMutex.RLock()
	defer cfgMutex.RUnlock()
	return cfgIns, nil
}

func (vl *ViperLoader) IsWatchChange() bool {
	return true
}

// RegisterConfigChangeCallback adds a callback invoked after every
// successful reload. Callbacks run on their own goroutines.
func (vl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	cfgMutex.Lock()
	vl.configChangeCallbacks = append(vl.configChangeCallbacks, callback)
	cfgMutex.Unlock()
}

func (vl *ViperLoader) loadConfig() error {
	viper.AddConfigPath("cfg/yaml")
	viper.SetConfigName("mode")
	viper.SetConfigType("yaml")

	// Secrets (tokens, api keys) usually arrive through the environment.
	viper.SetEnvPrefix("AGILEAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	cfgMutex.Lock()
	cfgIns = cfg
	cfgMutex.Unlock()

	return nil
}

func (vl *ViperLoader) reloadConfig() error {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: failed to unmarshal config during reload: %w", err)
	}

	cfgMutex.Lock()
	cfgIns = cfg
	callbacks := make([]func(*Config), len(vl.configChangeCallbacks))
	copy(callbacks, vl.configChangeCallbacks)
	cfgMutex.Unlock()

	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}
