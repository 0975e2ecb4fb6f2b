package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/readyctl/internal/testutil/testlog"
	"github.com/danmuck/readyctl/internal/transport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coordinator.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
addr = "127.0.0.1:9090"
reset_debounce = "250ms"
outbound_buffer = 32
cors_origins = ["http://localhost:3000", " "]
max_message_bytes = 8192
write_timeout = "2s"
`)
	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.NodeID != "coordinator" {
		t.Fatalf("node id should keep default, got %q", cfg.NodeID)
	}
	if cfg.Coordinator.ResetDebounce != 250*time.Millisecond {
		t.Fatalf("unexpected reset debounce: %v", cfg.Coordinator.ResetDebounce)
	}
	if cfg.OutboundBuffer != 32 {
		t.Fatalf("unexpected outbound buffer: %d", cfg.OutboundBuffer)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.Transport.MaxMessageBytes != 8192 {
		t.Fatalf("unexpected max message bytes: %d", cfg.Transport.MaxMessageBytes)
	}
	if cfg.Transport.WriteTimeout != 2*time.Second {
		t.Fatalf("unexpected write timeout: %v", cfg.Transport.WriteTimeout)
	}
	if cfg.Transport.SecurityMode != transport.SecurityModeDevelopment {
		t.Fatalf("unexpected security mode: %q", cfg.Transport.SecurityMode)
	}
}

func TestLoadServiceConfigEmptyFileKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServiceConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.Coordinator.ResetDebounce != 100*time.Millisecond {
		t.Fatalf("defaults not kept: addr=%q debounce=%v", cfg.ListenAddr, cfg.Coordinator.ResetDebounce)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected default cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadServiceConfigProductionRequiresTLS(t *testing.T) {
	testlog.Start(t)
	_, err := loadServiceConfig(writeConfig(t, `security_mode = "production"`))
	if !errors.Is(err, transport.ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}

	_, err = loadServiceConfig(writeConfig(t, `
security_mode = "production"
tls_enabled = true
tls_cert_file = "/etc/readyctl/server.crt"
`))
	if !errors.Is(err, transport.ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	for name, content := range map[string]string{
		"debounce":  `reset_debounce = "soon"`,
		"negative":  `reset_debounce = "-1s"`,
		"buffer":    `outbound_buffer = 0`,
		"mode":      `security_mode = "paranoid"`,
		"malformed": `addr = `,
	} {
		if _, err := loadServiceConfig(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
