package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/readyctl/internal/config"
	"github.com/danmuck/readyctl/internal/coordinator"
	"github.com/danmuck/readyctl/internal/transport"
)

// coordinatorctl loader for TOML config with default overlay.
func loadServiceConfig(path string) (coordinator.ServiceConfig, error) {
	cfg := coordinator.DefaultServiceConfig()

	var raw config.CoordinatorFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return coordinator.ServiceConfig{}, fmt.Errorf("load coordinator config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("node_id") {
		cfg.NodeID = strings.TrimSpace(raw.NodeID)
	}
	if meta.IsDefined("reset_debounce") {
		d, err := parseDuration("reset_debounce", raw.ResetDebounce)
		if err != nil {
			return coordinator.ServiceConfig{}, err
		}
		cfg.Coordinator.ResetDebounce = d
	}
	if meta.IsDefined("outbound_buffer") {
		if raw.OutboundBuffer <= 0 {
			return coordinator.ServiceConfig{}, fmt.Errorf("load coordinator config: outbound_buffer must be positive, got %d", raw.OutboundBuffer)
		}
		cfg.OutboundBuffer = raw.OutboundBuffer
	}
	if meta.IsDefined("cors_origins") {
		origins := make([]string, 0, len(raw.CORSOrigins))
		for _, o := range raw.CORSOrigins {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	if meta.IsDefined("max_message_bytes") {
		cfg.Transport.MaxMessageBytes = raw.MaxMessageBytes
	}
	if meta.IsDefined("write_timeout") {
		d, err := parseDuration("write_timeout", raw.WriteTimeout)
		if err != nil {
			return coordinator.ServiceConfig{}, err
		}
		cfg.Transport.WriteTimeout = d
	}
	if meta.IsDefined("security_mode") {
		cfg.Transport.SecurityMode = transport.SecurityMode(strings.TrimSpace(raw.SecurityMode))
	}
	if meta.IsDefined("tls_enabled") {
		cfg.Transport.TLS.Enabled = raw.TLSEnabled
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.Transport.TLS.CertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.Transport.TLS.KeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}

	cfg.Transport = cfg.Transport.WithDefaults()
	if err := cfg.Transport.ValidateServerTransport(); err != nil {
		return coordinator.ServiceConfig{}, fmt.Errorf("load coordinator config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load coordinator config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("load coordinator config: %s must not be negative", key)
	}
	return d, nil
}
