package manager

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config controls manager construction.
type Config struct {
	// DefaultSpace receives allocations requested with core.NONE.
	DefaultSpace string `toml:"default_space"`

	// LogLevel is a zerolog level name; "disabled" silences event logs.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig allocates on the host and logs nothing.
func DefaultConfig() Config {
	return Config{
		DefaultSpace: "cpu",
		LogLevel:     "disabled",
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
