// Package config loads quarry configuration. Precedence, lowest to
// highest: built-in defaults, quarry.yaml (or an explicit --config path),
// QUARRY_* environment variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "quarry.yaml"

// ConfigFileNameAlt is the alternate config file name.
const ConfigFileNameAlt = "quarry.yml"

// Config holds the CLI configuration.
type Config struct {
	// Dialect is the default target dialect for compilation.
	Dialect string `koanf:"dialect"`
	// Output selects the CLI output format: text or json.
	Output string `koanf:"output"`
	// LogLevel is the slog level name: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Verbose enables debug logging regardless of LogLevel.
	Verbose bool `koanf:"verbose"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"dialect":   "duckdb",
		"output":    "text",
		"log_level": "info",
	}
}

// Load builds the effective configuration. explicitPath may be empty, in
// which case quarry.yaml/quarry.yml in the working directory is used when
// present. flags may be nil.
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(explicitPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicitPath != "" {
		return nil, fmt.Errorf("config file %s not found", explicitPath)
	}

	err := k.Load(env.Provider("QUARRY_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "QUARRY_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}
