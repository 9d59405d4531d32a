package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds relay configuration values.
type Config struct {
	TCPAddr           string        `mapstructure:"tcp_addr" yaml:"tcp_addr"`
	WSAddr            string        `mapstructure:"ws_addr" yaml:"ws_addr"`
	WSPath            string        `mapstructure:"ws_path" yaml:"ws_path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size" yaml:"max_message_size"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the ports and sizes the relay has always used.
func Default() Config {
	return Config{
		TCPAddr:           ":8000",
		WSAddr:            ":8080",
		WSPath:            "/",
		ReadBufferSize:    1024,
		MaxMessageSize:    64 << 10,
		ReadHeaderTimeout: 5 * time.Second,
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.TCPAddr != "" {
		c.TCPAddr = other.TCPAddr
	}
	if other.WSAddr != "" {
		c.WSAddr = other.WSAddr
	}
	if other.WSPath != "" {
		c.WSPath = other.WSPath
	}
	if other.ReadBufferSize != 0 {
		c.ReadBufferSize = other.ReadBufferSize
	}
	if other.MaxMessageSize != 0 {
		c.MaxMessageSize = other.MaxMessageSize
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TCPAddr) == "" {
		errs = append(errs, errors.New("tcp_addr is required"))
	}
	if strings.TrimSpace(c.WSAddr) == "" {
		errs = append(errs, errors.New("ws_addr is required"))
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		errs = append(errs, fmt.Errorf("ws_path %q must start with /", c.WSPath))
	}
	if c.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("read_buffer_size must be positive, got %d", c.ReadBufferSize))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("max_message_size must be positive, got %d", c.MaxMessageSize))
	}
	if c.ReadHeaderTimeout < 0 {
		errs = append(errs, fmt.Errorf("read_header_timeout must not be negative, got %s", c.ReadHeaderTimeout))
	}
	return errors.Join(errs...)
}
