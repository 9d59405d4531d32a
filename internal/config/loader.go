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

const envPrefix = "RELAY"

// Load builds configuration from defaults, an optional YAML file and RELAY_* env vars.
// Precedence: defaults < config file < env vars < caller overrides.
// An explicit path that does not exist yet is created with the defaults.
func Load(logger *zerolog.Logger, path string) (Config, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("tcp_addr", cfg.TCPAddr)
	v.SetDefault("ws_addr", cfg.WSAddr)
	v.SetDefault("ws_path", cfg.WSPath)
	v.SetDefault("read_buffer_size", cfg.ReadBufferSize)
	v.SetDefault("max_message_size", cfg.MaxMessageSize)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
			if writeErr := writeDefault(path, cfg); writeErr != nil {
				logger.Warn().Err(writeErr).Str("path", path).Msg("failed to write default config")
			} else {
				logger.Info().Str("path", path).Msg("created default config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
