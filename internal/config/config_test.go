package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "test-token" {
		t.Errorf("token = %q", cfg.Token)
	}
	if cfg.GuildConfigPath != "guild_config.json" {
		t.Errorf("guild config path = %q", cfg.GuildConfigPath)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("api timeout = %v, want 10s", cfg.APITimeout)
	}
	if cfg.PublishMode != PublishAlways {
		t.Errorf("publish mode = %q, want %q", cfg.PublishMode, PublishAlways)
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing token must fail")
	}
}

func TestLoadInvalidPublishMode(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "x")
	t.Setenv("PUBLISH_MODE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatal("invalid publish mode must fail")
	}
}

func TestBackupAndWritePreEncoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := BackupAndWrite(path, []byte(`{"a":1}`), 2); err != nil {
		t.Fatal(err)
	}
	if err := BackupAndWrite(path, []byte(`{"b":2}`), 2); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"b":2}` {
		t.Errorf("content = %q, bytes must be written untouched", data)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("expected backup of prior content: %v", err)
	}
	if string(bak) != `{"a":1}` {
		t.Errorf("backup = %q, want prior content", bak)
	}
}

func TestAtomicWriteReplacesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := AtomicWriteJSON(path, map[string]int{"a": 1}, 0600); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteJSON(path, map[string]int{"b": 2}, 0600); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"b\": 2\n}" {
		t.Errorf("content = %q", data)
	}

	// No temp files may be left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files in dir: %v", entries)
	}
}
