package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/readyctl/internal/actor"
	"github.com/danmuck/readyctl/internal/config"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/danmuck/readyctl/internal/transport"
)

var ErrConfigIncomplete = errors.New("participantctl: config incomplete")

// participantctl loader; the [server] table matches host.toml.
func loadClientConfig(path string) (actor.Config, error) {
	cfg := actor.DefaultConfig()
	cfg.Role = protocol.RoleParticipant

	var raw config.ParticipantFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return actor.Config{}, fmt.Errorf("load participant config: %w", err)
	}
	if !meta.IsDefined("server", "url") {
		return actor.Config{}, fmt.Errorf("%w: missing server.url", ErrConfigIncomplete)
	}
	cfg.Address = strings.TrimSpace(raw.Server.URL)
	if meta.IsDefined("server", "max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.Server.MaxConnectAttempts
	}
	if meta.IsDefined("server", "security_mode") {
		cfg.Transport.SecurityMode = transport.SecurityMode(strings.TrimSpace(raw.Server.SecurityMode))
	}
	if meta.IsDefined("server", "tls_enabled") {
		cfg.Transport.TLS.Enabled = raw.Server.TLSEnabled
	}
	if meta.IsDefined("server", "tls_ca_file") {
		cfg.Transport.TLS.CAFile = strings.TrimSpace(raw.Server.TLSCAFile)
	}
	if meta.IsDefined("server", "tls_server_name") {
		cfg.Transport.TLS.ServerName = strings.TrimSpace(raw.Server.TLSServerName)
	}
	if meta.IsDefined("server", "tls_insecure_skip_verify") {
		cfg.Transport.TLS.InsecureSkipVerify = raw.Server.TLSInsecureSkipVerify
	}

	cfg.Transport = cfg.Transport.WithDefaults()
	if err := cfg.Transport.ValidateClientTransport(); err != nil {
		return actor.Config{}, fmt.Errorf("load participant config: %w", err)
	}
	return cfg, nil
}
