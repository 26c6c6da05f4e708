package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/nixrm/internal/remote"
)

const (
	defaultStoreRoot  = "/nix/store/"
	defaultMirrorRoot = "/tmp/nixrm/"
)

type runConfig struct {
	StoreRoot  string
	MirrorRoot string
	LogLevel   string
	SSH        remote.Config
}

func defaultRunConfig() runConfig {
	return runConfig{
		StoreRoot:  defaultStoreRoot,
		MirrorRoot: defaultMirrorRoot,
	}
}

type fileConfig struct {
	StoreRoot  string        `toml:"store_root"`
	MirrorRoot string        `toml:"mirror_root"`
	LogLevel   string        `toml:"log_level"`
	SSH        fileSSHConfig `toml:"ssh"`
}

type fileSSHConfig struct {
	User       string `toml:"user"`
	Port       string `toml:"port"`
	Key        string `toml:"key"`
	KnownHosts string `toml:"known_hosts"`
	Insecure   bool   `toml:"insecure"`
	Timeout    string `toml:"timeout"`
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("store_root") {
		if v := strings.TrimSpace(raw.StoreRoot); v != "" {
			cfg.StoreRoot = v
		}
	}
	if meta.IsDefined("mirror_root") {
		if v := strings.TrimSpace(raw.MirrorRoot); v != "" {
			cfg.MirrorRoot = v
		}
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("ssh", "user") {
		cfg.SSH.User = strings.TrimSpace(raw.SSH.User)
	}
	if meta.IsDefined("ssh", "port") {
		cfg.SSH.Port = strings.TrimSpace(raw.SSH.Port)
	}
	if meta.IsDefined("ssh", "key") {
		cfg.SSH.KeyPath = strings.TrimSpace(raw.SSH.Key)
	}
	if meta.IsDefined("ssh", "known_hosts") {
		cfg.SSH.KnownHostsPath = strings.TrimSpace(raw.SSH.KnownHosts)
	}
	if meta.IsDefined("ssh", "insecure") {
		cfg.SSH.InsecureSkipHostKeyChecking = raw.SSH.Insecure
	}
	if meta.IsDefined("ssh", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SSH.Timeout))
		if err != nil {
			return runConfig{}, fmt.Errorf("parse ssh timeout: %w", err)
		}
		cfg.SSH.Timeout = d
	}

	return cfg, nil
}
