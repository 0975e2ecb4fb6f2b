package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/actor"
	"github.com/danmuck/readyctl/internal/config"
	"github.com/danmuck/readyctl/internal/transport"
	"github.com/rs/zerolog/log"
)

var ErrConfigIncomplete = errors.New("hostctl: config incomplete")

// loadOrCreateHostConfig writes the default config to path when nothing is
// there yet, then loads it.
func loadOrCreateHostConfig(path string) (actor.HostConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := config.WriteTemplate(path, config.KindHost, false); err != nil {
			return actor.HostConfig{}, fmt.Errorf("create default host config: %w", err)
		}
		log.Info().Str("path", path).Msg("created default host config; edit server url as needed")
	}
	return loadHostConfig(path)
}

// hostctl loader for TOML config; [server] url and [settings]
// set_pos_delay_ms are required.
func loadHostConfig(path string) (actor.HostConfig, error) {
	cfg := actor.HostConfig{
		Client:     actor.DefaultConfig(),
		Mode:       action.ModeClick,
		TriggerKey: action.DefaultTriggerKey,
	}

	var raw config.HostFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return actor.HostConfig{}, fmt.Errorf("load host config: %w", err)
	}
	for _, key := range [][]string{{"server"}, {"server", "url"}, {"settings"}, {"settings", "set_pos_delay_ms"}} {
		if !meta.IsDefined(key...) {
			return actor.HostConfig{}, fmt.Errorf("%w: missing %s", ErrConfigIncomplete, strings.Join(key, "."))
		}
	}

	cfg.Client.Address = strings.TrimSpace(raw.Server.URL)
	if cfg.Client.Address == "" {
		return actor.HostConfig{}, fmt.Errorf("%w: server.url is empty", ErrConfigIncomplete)
	}
	if raw.Settings.SetPosDelayMS < 0 {
		return actor.HostConfig{}, fmt.Errorf("load host config: set_pos_delay_ms must not be negative, got %d", raw.Settings.SetPosDelayMS)
	}
	cfg.CaptureDelay = time.Duration(raw.Settings.SetPosDelayMS) * time.Millisecond

	if meta.IsDefined("settings", "hotkey") {
		key, err := action.ResolveTriggerKey(raw.Settings.Hotkey)
		if err != nil {
			log.Warn().Err(err).Str("fallback", string(key)).Msg("unrecognized hotkey")
		}
		cfg.TriggerKey = key
	}
	if meta.IsDefined("settings", "action_mode") {
		mode, err := action.ParseMode(raw.Settings.ActionMode)
		if err != nil {
			log.Warn().Err(err).Str("fallback", string(action.ModeClick)).Msg("unrecognized action mode")
			mode = action.ModeClick
		}
		cfg.Mode = mode
	}

	if meta.IsDefined("server", "max_connect_attempts") {
		cfg.Client.MaxConnectAttempts = raw.Server.MaxConnectAttempts
	}
	if meta.IsDefined("server", "security_mode") {
		cfg.Client.Transport.SecurityMode = transport.SecurityMode(strings.TrimSpace(raw.Server.SecurityMode))
	}
	if meta.IsDefined("server", "tls_enabled") {
		cfg.Client.Transport.TLS.Enabled = raw.Server.TLSEnabled
	}
	if meta.IsDefined("server", "tls_ca_file") {
		cfg.Client.Transport.TLS.CAFile = resolvePath(path, raw.Server.TLSCAFile)
	}
	if meta.IsDefined("server", "tls_server_name") {
		cfg.Client.Transport.TLS.ServerName = strings.TrimSpace(raw.Server.TLSServerName)
	}
	if meta.IsDefined("server", "tls_insecure_skip_verify") {
		cfg.Client.Transport.TLS.InsecureSkipVerify = raw.Server.TLSInsecureSkipVerify
	}

	cfg.Client.Transport = cfg.Client.Transport.WithDefaults()
	if err := cfg.Client.Transport.ValidateClientTransport(); err != nil {
		return actor.HostConfig{}, fmt.Errorf("load host config: %w", err)
	}
	return cfg, nil
}

// SaveHotkey rewrites settings.hotkey in the config at path, keeping every
// other key.
func SaveHotkey(path string, key action.Key) error {
	doc := map[string]any{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("save hotkey: %w", err)
	}
	settings, _ := doc["settings"].(map[string]any)
	if settings == nil {
		settings = map[string]any{}
		doc["settings"] = settings
	}
	settings["hotkey"] = string(key)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".hostctl-*.toml")
	if err != nil {
		return fmt.Errorf("save hotkey: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := toml.NewEncoder(tmp).Encode(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save hotkey: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save hotkey: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save hotkey: %w", err)
	}
	return nil
}

func resolvePath(configPath, raw string) string {
	p := strings.TrimSpace(raw)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
