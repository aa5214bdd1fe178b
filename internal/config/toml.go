// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Study  StudyConfig  `toml:"study"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig maps settings of the HTTP API server.
type ServerConfig struct {
	Addr        *string  `toml:"addr"`
	CORSOrigins []string `toml:"cors-origins"`
	Env         *string  `toml:"env"`
	DB          *string  `toml:"db"`
}

// ClientConfig maps settings used when the CLI talks to a remote server.
type ClientConfig struct {
	Server *string `toml:"server"`
}

// StudyConfig maps study session settings.
type StudyConfig struct {
	IncludeAll *bool `toml:"include-all"`
	Shuffle    *bool `toml:"shuffle"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
