package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/readyctl/internal/testutil/testlog"
)

func TestTemplatesValidate(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, kind := range []string{KindCoordinator, KindHost, KindParticipant} {
		path := filepath.Join(dir, kind+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write %s template: %v", kind, err)
		}
		if err := Validate(path, kind); err != nil {
			t.Fatalf("validate %s template: %v", kind, err)
		}
		if err := WriteTemplate(path, kind, false); err == nil {
			t.Fatalf("expected refusal to overwrite %s", kind)
		}
		if err := WriteTemplate(path, kind, true); err != nil {
			t.Fatalf("forced overwrite %s: %v", kind, err)
		}
	}
}

func TestValidateRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "host.toml")
	content := HostTemplate + "turbo = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := Validate(path, KindHost)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "turbo") {
		t.Fatalf("error should name the unknown key: %v", err)
	}
}

func TestValidateRequiresActorURL(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "participant.toml")
	if err := os.WriteFile(path, []byte("[server]\nmax_connect_attempts = 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Validate(path, KindParticipant); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := Template("mirage"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if err := Validate("/nonexistent", "host"); err == nil {
		t.Fatalf("expected load error")
	}
}
