package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRunConfigExample(t *testing.T) {
	cfg, err := loadRunConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreRoot != "/nix/store/" {
		t.Fatalf("unexpected store root: %q", cfg.StoreRoot)
	}
	if cfg.MirrorRoot != "/tmp/nixrm/" {
		t.Fatalf("unexpected mirror root: %q", cfg.MirrorRoot)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.SSH.User != "deploy" {
		t.Fatalf("unexpected ssh user: %q", cfg.SSH.User)
	}
	if cfg.SSH.Port != "2222" {
		t.Fatalf("unexpected ssh port: %q", cfg.SSH.Port)
	}
	if cfg.SSH.KeyPath != "/home/deploy/.ssh/id_ed25519" {
		t.Fatalf("unexpected key path: %q", cfg.SSH.KeyPath)
	}
	if cfg.SSH.KnownHostsPath != "/home/deploy/.ssh/known_hosts" {
		t.Fatalf("unexpected known hosts path: %q", cfg.SSH.KnownHostsPath)
	}
	if cfg.SSH.InsecureSkipHostKeyChecking {
		t.Fatalf("expected host key checking enabled")
	}
	if cfg.SSH.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.SSH.Timeout)
	}
}

func TestLoadRunConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mirror_root = "/run/user/1000/nixrm/"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadRunConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MirrorRoot != "/run/user/1000/nixrm/" {
		t.Fatalf("unexpected mirror root: %q", cfg.MirrorRoot)
	}
	if cfg.StoreRoot != defaultStoreRoot {
		t.Fatalf("default store root lost: %q", cfg.StoreRoot)
	}
}

func TestLoadRunConfigBadTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[ssh]
timeout = "abc"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadRunConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := loadRunConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
