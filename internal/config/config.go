package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrUnknownKind = errors.New("config: unknown kind")
	ErrInvalid     = errors.New("config: invalid")
)

const (
	KindCoordinator = "coordinator"
	KindHost        = "host"
	KindParticipant = "participant"
)

// CoordinatorFile is the coordinator.toml schema.
type CoordinatorFile struct {
	Addr            string   `toml:"addr"`
	NodeID          string   `toml:"node_id"`
	ResetDebounce   string   `toml:"reset_debounce"`
	OutboundBuffer  int      `toml:"outbound_buffer"`
	CORSOrigins     []string `toml:"cors_origins"`
	MaxMessageBytes int64    `toml:"max_message_bytes"`
	WriteTimeout    string   `toml:"write_timeout"`
	SecurityMode    string   `toml:"security_mode"`
	TLSEnabled      bool     `toml:"tls_enabled"`
	TLSCertFile     string   `toml:"tls_cert_file"`
	TLSKeyFile      string   `toml:"tls_key_file"`
}

// ServerSection is the [server] table shared by actor configs.
type ServerSection struct {
	URL                   string `toml:"url"`
	MaxConnectAttempts    int    `toml:"max_connect_attempts"`
	SecurityMode          string `toml:"security_mode"`
	TLSEnabled            bool   `toml:"tls_enabled"`
	TLSCAFile             string `toml:"tls_ca_file"`
	TLSServerName         string `toml:"tls_server_name"`
	TLSInsecureSkipVerify bool   `toml:"tls_insecure_skip_verify"`
}

type HostSettings struct {
	SetPosDelayMS int    `toml:"set_pos_delay_ms"`
	Hotkey        string `toml:"hotkey"`
	ActionMode    string `toml:"action_mode"`
}

// HostFile is the host.toml schema.
type HostFile struct {
	Server   ServerSection `toml:"server"`
	Settings HostSettings  `toml:"settings"`
}

// ParticipantFile is the participant.toml schema.
type ParticipantFile struct {
	Server ServerSection `toml:"server"`
}

// Validate strictly decodes the file at path as kind: unknown keys are
// errors, and required actor keys must be set.
func Validate(path, kind string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch normalizeKind(kind) {
	case KindCoordinator:
		var cfg CoordinatorFile
		return strictDecode(path, data, &cfg)
	case KindHost:
		var cfg HostFile
		if err := strictDecode(path, data, &cfg); err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Server.URL) == "" {
			return fmt.Errorf("%w: %s: server.url is required", ErrInvalid, path)
		}
		if cfg.Settings.SetPosDelayMS < 0 {
			return fmt.Errorf("%w: %s: settings.set_pos_delay_ms must not be negative", ErrInvalid, path)
		}
		return nil
	case KindParticipant:
		var cfg ParticipantFile
		if err := strictDecode(path, data, &cfg); err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Server.URL) == "" {
			return fmt.Errorf("%w: %s: server.url is required", ErrInvalid, path)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func strictDecode(path string, data []byte, out any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for i := range strict.Errors {
				keys = append(keys, strings.Join(strict.Errors[i].Key(), "."))
			}
			return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
		return fmt.Errorf("%w: config parse failed (%s): %v", ErrInvalid, path, err)
	}
	return nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
