package main

import (
	"path/filepath"
	"testing"

	"github.com/danmuck/readyctl/internal/testutil/testlog"
)

func TestTemplateThenValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "host.toml")

	gen := newRootCmd()
	gen.SetArgs([]string{"template", "--kind", "host", "-o", path})
	if err := gen.Execute(); err != nil {
		t.Fatalf("template: %v", err)
	}

	check := newRootCmd()
	check.SetArgs([]string{"validate", "--kind", "host", path})
	if err := check.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	again := newRootCmd()
	again.SetArgs([]string{"template", "--kind", "host", "-o", path})
	if err := again.Execute(); err == nil {
		t.Fatalf("expected refusal to overwrite without --force")
	}
}

func TestValidateWrongKindFails(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "coordinator.toml")

	gen := newRootCmd()
	gen.SetArgs([]string{"template", "-o", path})
	if err := gen.Execute(); err != nil {
		t.Fatalf("template: %v", err)
	}
	check := newRootCmd()
	check.SetArgs([]string{"validate", "--kind", "participant", path})
	if err := check.Execute(); err == nil {
		t.Fatalf("coordinator file should not validate as participant")
	}
}
