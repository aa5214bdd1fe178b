package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvAddr        = "FLASHVOCAB_ADDR"
	EnvCORSOrigins = "FLASHVOCAB_CORS_ORIGINS"
	EnvEnv         = "FLASHVOCAB_ENV"
	EnvDB          = "FLASHVOCAB_DB"
	EnvServer      = "FLASHVOCAB_SERVER"
	EnvIncludeAll  = "FLASHVOCAB_INCLUDE_ALL"
	EnvShuffle     = "FLASHVOCAB_SHUFFLE"
	EnvLogLevel    = "FLASHVOCAB_LOG_LEVEL"
	EnvLogFile     = "FLASHVOCAB_LOG_FILE"
)

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with the FLASHVOCAB_* variables returned
// by getenv. Empty values are ignored.
func (c *FileConfig) ApplyEnv(getenv func(string) string) error {
	applyEnvString(getenv, EnvAddr, &c.Server.Addr)
	applyEnvString(getenv, EnvEnv, &c.Server.Env)
	applyEnvString(getenv, EnvDB, &c.Server.DB)
	applyEnvString(getenv, EnvServer, &c.Client.Server)
	applyEnvString(getenv, EnvLogLevel, &c.Log.Level)
	applyEnvString(getenv, EnvLogFile, &c.Log.File)
	if v := strings.TrimSpace(getenv(EnvCORSOrigins)); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if err := applyEnvBool(getenv, EnvIncludeAll, &c.Study.IncludeAll); err != nil {
		return err
	}
	return applyEnvBool(getenv, EnvShuffle, &c.Study.Shuffle)
}

func applyEnvString(getenv func(string) string, key string, target **string) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return
	}
	*target = &v
}

func applyEnvBool(getenv func(string) string, key string, target **bool) error {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*target = &b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
