package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/nimburion/serverconf/pkg/config"
	"github.com/nimburion/serverconf/pkg/middleware/session"
)

func overrideFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("engine", "", "")
	fs.String("address", "", "")
	fs.Int("port", 0, "")
	fs.String("context-path", "", "")
	fs.String("display-name", "", "")
	fs.String("server-header", "", "")
	fs.Bool("use-forward-headers", false, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}
	return fs
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	flags := overrideFlags(t, "--port", "9000", "--context-path", "/api/", "--engine", "gin")

	if err := applyFlagOverrides(cfg, flags); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EngineType != "gin" {
		t.Errorf("expected engine gin, got %s", cfg.EngineType)
	}
	if cfg.Server.Port == nil || *cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %v", cfg.Server.Port)
	}
	if cfg.Server.ContextPath != "/api" {
		t.Errorf("expected normalized /api, got %q", cfg.Server.ContextPath)
	}
}

func TestApplyFlagOverridesLeavesUnchangedFlagsAlone(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := applyFlagOverrides(cfg, overrideFlags(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != nil {
		t.Errorf("expected port unset, got %v", cfg.Server.Port)
	}
	if cfg.EngineType != config.EngineNetHTTP {
		t.Errorf("expected default engine, got %s", cfg.EngineType)
	}
}

func TestApplyFlagOverridesRejectsBadValues(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := applyFlagOverrides(cfg, overrideFlags(t, "--address", "not-an-ip")); err == nil {
		t.Error("expected error for invalid address")
	}

	cfg = config.DefaultConfig()
	if err := applyFlagOverrides(cfg, overrideFlags(t, "--engine", "tomcat")); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestNewSessionStoreKinds(t *testing.T) {
	cfg := config.DefaultConfig()
	store, err := newSessionStore(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*session.InMemoryStore); !ok {
		t.Errorf("expected in-memory store by default, got %T", store)
	}

	cfg.SessionStore.Kind = config.SessionStoreFile
	if _, err := newSessionStore(cfg); err == nil {
		t.Error("expected error for file store without store dir")
	}
	cfg.Server.Session.StoreDir = filepath.Join(t.TempDir(), "sessions")
	store, err = newSessionStore(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*session.FileStore); !ok {
		t.Errorf("expected file store, got %T", store)
	}

	cfg.SessionStore.Kind = config.SessionStoreRedis
	cfg.SessionStore.RedisURL = "redis://localhost:6379/0"
	store, err = newSessionStore(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*session.RedisStore); !ok {
		t.Errorf("expected redis store, got %T", store)
	}

	cfg.SessionStore.Kind = "memcached"
	if _, err := newSessionStore(cfg); err == nil {
		t.Error("expected error for unknown store kind")
	}
}

func TestConfigCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("engine_type: gorilla\nserver:\n  port: 9000\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := NewRootCommand(Options{Name: "serverconf"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "check", "-c", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config check failed: %v", err)
	}
	if !strings.Contains(out.String(), "gorilla") {
		t.Errorf("expected engine in output, got %q", out.String())
	}
}

func TestConfigCheckCommandRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine_type: tomcat\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := NewRootCommand(Options{Name: "serverconf"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "check", "-c", path})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid engine type")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand(Options{Name: "serverconf"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out.String(), "Version:") {
		t.Errorf("expected version output, got %q", out.String())
	}
}
