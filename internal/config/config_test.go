package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "3000"
mongo:
  uri: "mongodb://file-host/db"
  database: "exam_bot_db"
messenger:
  verify_token: "file-verify"
redis:
  addr: "localhost:6379"
  ttl: "5m"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MONGO_CONNECTION_STRING", "mongodb://env-host/db")
	t.Setenv("META_ACCESS_TOKEN", "env-token")
	t.Setenv("META_VERIFY_TOKEN", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://env-host/db" {
		t.Fatalf("env should override file, got %q", cfg.Mongo.URI)
	}
	if cfg.Messenger.AccessToken != "env-token" {
		t.Fatalf("expected env access token, got %q", cfg.Messenger.AccessToken)
	}
	if cfg.Messenger.VerifyToken != "file-verify" {
		t.Fatalf("empty env must not override file, got %q", cfg.Messenger.VerifyToken)
	}
	if cfg.Server.Port != "3000" || cfg.Mongo.Database != "exam_bot_db" {
		t.Fatalf("file values lost: %+v", cfg)
	}
}

func TestLoadMissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("META_ACCESS_TOKEN", "tok")
	t.Setenv("META_VERIFY_TOKEN", "ver")
	t.Setenv("MONGO_CONNECTION_STRING", "mongodb://h/db")
	t.Setenv("PORT", "9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Messenger.AccessToken != "tok" || cfg.Messenger.VerifyToken != "ver" {
		t.Fatalf("env values missing: %+v", cfg.Messenger)
	}
	if cfg.Mongo.URI != "mongodb://h/db" || cfg.Server.Port != "9999" {
		t.Fatalf("env values missing: %+v", cfg)
	}
}

func TestTTLDuration(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("30s", time.Minute); d != 30*time.Second {
		t.Fatalf("expected 30s, got %v", d)
	}
	if d := TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback for bogus value, got %v", d)
	}
}
