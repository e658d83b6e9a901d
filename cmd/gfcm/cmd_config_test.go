package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gfcm/internal/config"
)

func TestConfigGetSet(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, newConfigCmd(), "config", "get", "simulation.lambda")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.lambda = 1" {
		t.Errorf("default lambda output = %q", out)
	}

	if _, err := execute(t, newConfigCmd(), "config", "set", "simulation.lambda", "2.5"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	out, err = execute(t, newConfigCmd(), "config", "get", "simulation.lambda", "--json")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	var res map[string]interface{}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if res["value"] != 2.5 {
		t.Errorf("value = %v, want 2.5", res["value"])
	}

	cfg, err := config.LoadFromFile(filepath.Join(tmpDir, "home", ".gfcm", "config.yaml"))
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if cfg.Simulation.Lambda != 2.5 {
		t.Errorf("saved lambda = %v, want 2.5", cfg.Simulation.Lambda)
	}
}

func TestConfigSet_DoesNotPersistEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	t.Setenv("GFCM_LOG_LEVEL", "debug")

	if _, err := execute(t, newConfigCmd(), "config", "set", "sweep.concurrency", "8"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "home", ".gfcm", "config.yaml"))
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if strings.Contains(string(data), "debug") {
		t.Errorf("environment override persisted:\n%s", data)
	}
	if !strings.Contains(string(data), "concurrency: 8") {
		t.Errorf("concurrency not saved:\n%s", data)
	}
}

func TestConfigSet_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown key", "llm.provider", "x", "unknown configuration key"},
		{"not a number", "simulation.lambda", "steep", "invalid number"},
		{"not an integer", "mcp.burst", "1.5", "invalid integer"},
		{"out of range", "metrics.damping_factor", "1.5", "damping_factor"},
		{"bad level", "logging.level", "verbose", "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, newConfigCmd(), "config", "set", tt.key, tt.value)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".gfcm", "config.yaml")); !os.IsNotExist(err) {
		t.Error("config written despite invalid values")
	}
}

func TestConfigList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, newConfigCmd(), "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	for _, key := range configKeys {
		if !strings.Contains(out, key+":") {
			t.Errorf("list missing %s:\n%s", key, out)
		}
	}

	out, err = execute(t, newConfigCmd(), "config", "list", "--json")
	if err != nil {
		t.Fatalf("config list --json failed: %v", err)
	}
	var cfg config.GFCMConfig
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if cfg.Sweep.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Sweep.Concurrency)
	}
}

func TestGetConfigValue_CoversEveryKey(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys {
		if _, ok := getConfigValue(cfg, key); !ok {
			t.Errorf("getConfigValue(%q) not found", key)
		}
	}
	if _, ok := getConfigValue(cfg, "nope"); ok {
		t.Error("unknown key found")
	}
}
