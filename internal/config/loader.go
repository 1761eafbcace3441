package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load builds configuration from defaults, an optional yaml config file,
// and environment variables. Precedence: defaults < config file < env vars.
// If the named config file does not exist, one holding the defaults is
// written there. The listen port is deliberately left to the -p flag.
func Load(logger *zerolog.Logger, explicitPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("max_clients", cfg.MaxClients)
	v.SetDefault("max_payload", cfg.MaxPayload)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix("JEUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				if writeErr := writeDefaultConfig(explicitPath, cfg); writeErr != nil && logger != nil {
					logger.Warn().Err(writeErr).Str("path", explicitPath).Msg("failed to write default config")
				} else if logger != nil {
					logger.Info().Str("path", explicitPath).Msg("created default config")
				}
			} else {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
