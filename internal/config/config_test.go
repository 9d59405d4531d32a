package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.TCPAddr != ":8000" || cfg.WSAddr != ":8080" {
		t.Errorf("unexpected default ports: tcp=%q ws=%q", cfg.TCPAddr, cfg.WSAddr)
	}
	if cfg.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want 1024", cfg.ReadBufferSize)
	}
	if cfg.MaxMessageSize != 65536 {
		t.Errorf("MaxMessageSize = %d, want 65536", cfg.MaxMessageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{TCPAddr: ":9000", LogLevel: "debug"})

	if cfg.TCPAddr != ":9000" {
		t.Errorf("TCPAddr = %q, want :9000", cfg.TCPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.WSAddr != ":8080" {
		t.Errorf("zero value overwrote WSAddr: %q", cfg.WSAddr)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{WSPath: "ws", ReadBufferSize: 0}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"tcp_addr", "ws_addr", "ws_path", "read_buffer_size", "max_message_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_WritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay.yaml")

	if _, err := Load(nil, path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "tcp_addr") {
		t.Errorf("default config missing tcp_addr: %s", data)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	content := "tcp_addr: \":7000\"\nws_addr: \":7001\"\nws_path: /chat\nread_header_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RELAY_WS_ADDR", ":7100")
	t.Setenv("RELAY_MAX_MESSAGE_SIZE", "2048")

	cfg, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TCPAddr != ":7000" {
		t.Errorf("TCPAddr = %q, want :7000 from file", cfg.TCPAddr)
	}
	if cfg.WSAddr != ":7100" {
		t.Errorf("WSAddr = %q, want :7100 from env", cfg.WSAddr)
	}
	if cfg.WSPath != "/chat" {
		t.Errorf("WSPath = %q, want /chat", cfg.WSPath)
	}
	if cfg.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("ReadHeaderTimeout = %s, want 2s", cfg.ReadHeaderTimeout)
	}
	if cfg.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want default 1024", cfg.ReadBufferSize)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d, want 2048 from env", cfg.MaxMessageSize)
	}
}
