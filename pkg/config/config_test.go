package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/koh0920/syncarchive/pkg/config"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load([]string{dir}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.BaseDir != "./syncs" {
		t.Fatalf("expected default base_dir, got %q", cfg.Store.BaseDir)
	}
	if cfg.Server.ListenAddr != ":8642" {
		t.Fatalf("expected default listen_addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Sandbox.TimeoutMs != 5000 {
		t.Fatalf("expected default timeout_ms 5000, got %d", cfg.Sandbox.TimeoutMs)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default logging level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadReadsYamlFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  base_dir: /var/lib/syncd/archives
server:
  listen_addr: "127.0.0.1:9000"
  read_only: true
sandbox:
  timeout_ms: 2500
  allow_hosts:
    - api.example.com
logging:
  level: debug
`
	if err := os.WriteFile(filepath.Join(dir, "syncd.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load([]string{dir}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.BaseDir != "/var/lib/syncd/archives" {
		t.Fatalf("base_dir not read from file: %q", cfg.Store.BaseDir)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("listen_addr not read from file: %q", cfg.Server.ListenAddr)
	}
	if !cfg.Server.ReadOnly {
		t.Fatal("expected read_only true")
	}
	if cfg.Sandbox.TimeoutMs != 2500 {
		t.Fatalf("timeout_ms not read from file: %d", cfg.Sandbox.TimeoutMs)
	}
	if len(cfg.Sandbox.AllowHosts) != 1 || cfg.Sandbox.AllowHosts[0] != "api.example.com" {
		t.Fatalf("allow_hosts not read from file: %v", cfg.Sandbox.AllowHosts)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level not read from file: %q", cfg.Logging.Level)
	}
}
