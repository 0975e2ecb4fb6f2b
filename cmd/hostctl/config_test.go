package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/testutil/testlog"
	"github.com/danmuck/readyctl/internal/transport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadHostConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
url = "http://10.0.0.2:8080"
max_connect_attempts = 3

[settings]
set_pos_delay_ms = 1500
hotkey = "f8"
action_mode = "Scroll"
`)
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Client.Address != "http://10.0.0.2:8080" {
		t.Fatalf("unexpected address: %q", cfg.Client.Address)
	}
	if cfg.Client.MaxConnectAttempts != 3 {
		t.Fatalf("unexpected max connect attempts: %d", cfg.Client.MaxConnectAttempts)
	}
	if cfg.CaptureDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected capture delay: %v", cfg.CaptureDelay)
	}
	if cfg.TriggerKey != "F8" {
		t.Fatalf("unexpected trigger key: %q", cfg.TriggerKey)
	}
	if cfg.Mode != action.ModeScroll {
		t.Fatalf("unexpected mode: %q", cfg.Mode)
	}
	if cfg.Client.Transport.SecurityMode != transport.SecurityModeDevelopment {
		t.Fatalf("unexpected security mode: %q", cfg.Client.Transport.SecurityMode)
	}
}

func TestLoadHostConfigFallbacks(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
url = "http://127.0.0.1:8080"

[settings]
set_pos_delay_ms = 0
hotkey = "hyper"
action_mode = "drag"
`)
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TriggerKey != action.DefaultTriggerKey {
		t.Fatalf("expected fallback trigger key, got %q", cfg.TriggerKey)
	}
	if cfg.Mode != action.ModeClick {
		t.Fatalf("expected fallback mode, got %q", cfg.Mode)
	}
}

func TestLoadHostConfigRequiresSections(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"server section": `
[settings]
set_pos_delay_ms = 100
`,
		"server url": `
[server]
[settings]
set_pos_delay_ms = 100
`,
		"settings delay": `
[server]
url = "http://127.0.0.1:8080"
[settings]
hotkey = "RETURN"
`,
	}
	for name, content := range cases {
		_, err := loadHostConfig(writeConfig(t, content))
		if !errors.Is(err, ErrConfigIncomplete) {
			t.Fatalf("%s: expected ErrConfigIncomplete, got %v", name, err)
		}
	}
}

func TestLoadHostConfigTLSPathsResolveRelativeToConfig(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
url = "https://coord.example:8443"
security_mode = "production"
tls_enabled = true
tls_ca_file = "certs/ca.pem"

[settings]
set_pos_delay_ms = 100
`)
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := filepath.Join(filepath.Dir(path), "certs", "ca.pem")
	if cfg.Client.Transport.TLS.CAFile != want {
		t.Fatalf("unexpected ca file: %q want %q", cfg.Client.Transport.TLS.CAFile, want)
	}

	_, err = loadHostConfig(writeConfig(t, `
[server]
url = "http://coord.example:8080"
security_mode = "production"
[settings]
set_pos_delay_ms = 100
`))
	if !errors.Is(err, transport.ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
}

func TestLoadOrCreateWritesDefault(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "host.toml")
	cfg, err := loadOrCreateHostConfig(path)
	if err != nil {
		t.Fatalf("load or create: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Client.Address != "http://127.0.0.1:8080" || cfg.CaptureDelay != 2*time.Second {
		t.Fatalf("unexpected defaults: addr=%q delay=%v", cfg.Client.Address, cfg.CaptureDelay)
	}
}

func TestSaveHotkeyKeepsOtherKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
url = "http://10.0.0.2:8080"

[settings]
set_pos_delay_ms = 750
hotkey = "RETURN"
action_mode = "scroll"
`)
	if err := SaveHotkey(path, "F9"); err != nil {
		t.Fatalf("save hotkey: %v", err)
	}
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.TriggerKey != "F9" {
		t.Fatalf("hotkey not persisted: %q", cfg.TriggerKey)
	}
	if cfg.Client.Address != "http://10.0.0.2:8080" || cfg.Mode != action.ModeScroll || cfg.CaptureDelay != 750*time.Millisecond {
		t.Fatalf("other keys changed: %+v", cfg)
	}

	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".hostctl-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
