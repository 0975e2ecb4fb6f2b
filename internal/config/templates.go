package config

import (
	"fmt"
	"os"
)

func Template(kind string) (string, error) {
	switch normalizeKind(kind) {
	case KindCoordinator:
		return coordinatorTemplate, nil
	case KindHost:
		return HostTemplate, nil
	case KindParticipant:
		return participantTemplate, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o644)
}

const coordinatorTemplate = `addr = ":8080"
reset_debounce = "100ms"
outbound_buffer = 16
cors_origins = ["*"]
max_message_bytes = 4096
security_mode = "development"
tls_enabled = false
`

// HostTemplate is also what hostctl writes on first run.
const HostTemplate = `[server]
url = "http://127.0.0.1:8080"

[settings]
set_pos_delay_ms = 2000
hotkey = "RETURN"
action_mode = "click"
`

const participantTemplate = `[server]
url = "http://127.0.0.1:8080"
`
