package config

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEngineConfig(t *testing.T) {
	path := writeConfig(t, `
[engine]
path = "biodockify-engine"
args = ["--port", "8000"]
dir = "/opt/biodockify"
output_tag = "AGENT ZERO"
ready_addr = "127.0.0.1:8000"

[engine.env]
PYTHONUNBUFFERED = "1"
LOG_LEVEL = "info"

[server]
addr = ":9000"
`)

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig failed: %v", err)
	}

	if cfg.Path != "biodockify-engine" || cfg.Dir != "/opt/biodockify" {
		t.Errorf("unexpected engine config %+v", cfg)
	}
	if want := []string{"--port", "8000"}; !reflect.DeepEqual(cfg.Args, want) {
		t.Errorf("Args = %v, want %v", cfg.Args, want)
	}
	if cfg.OutputTag != "AGENT ZERO" || cfg.ReadyAddr != "127.0.0.1:8000" {
		t.Errorf("unexpected tag/addr %+v", cfg)
	}
	if want := []string{"LOG_LEVEL=info", "PYTHONUNBUFFERED=1"}; !reflect.DeepEqual(cfg.EnvPairs(), want) {
		t.Errorf("EnvPairs = %v, want %v", cfg.EnvPairs(), want)
	}
}

func TestLoadEngineConfigErrors(t *testing.T) {
	if _, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadEngineConfig(writeConfig(t, "[engine\n")); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestEngineConfigEmptyEnv(t *testing.T) {
	if pairs := (EngineConfig{}).EnvPairs(); pairs != nil {
		t.Errorf("expected nil, got %v", pairs)
	}
}

func TestEngineConfigMerge(t *testing.T) {
	base := EngineConfig{
		Path:      "biodockify-engine",
		Args:      []string{"--port", "8000"},
		OutputTag: "ENGINE",
		Env:       map[string]string{"A": "1", "B": "2"},
	}
	merged := base.Merge(EngineConfig{
		Args:      []string{"--port", "9000"},
		ReadyAddr: "127.0.0.1:9000",
		Env:       map[string]string{"B": "3"},
	})

	if merged.Path != "biodockify-engine" || merged.OutputTag != "ENGINE" {
		t.Errorf("empty override fields should keep base values: %+v", merged)
	}
	if want := []string{"--port", "9000"}; !reflect.DeepEqual(merged.Args, want) {
		t.Errorf("Args = %v, want %v", merged.Args, want)
	}
	if merged.ReadyAddr != "127.0.0.1:9000" {
		t.Errorf("ReadyAddr = %q", merged.ReadyAddr)
	}
	if want := []string{"A=1", "B=3"}; !reflect.DeepEqual(merged.EnvPairs(), want) {
		t.Errorf("EnvPairs = %v, want %v", merged.EnvPairs(), want)
	}
	if base.Env["B"] != "2" {
		t.Error("Merge must not modify the receiver's env")
	}
}

func TestEngineConfigCommand(t *testing.T) {
	resolve := func(name string) string { return "/opt/biodockify/" + name }

	cmd := EngineConfig{}.Command(resolve)
	if cmd.Path != "/opt/biodockify/"+DefaultEngineName {
		t.Errorf("Path = %q, want default engine", cmd.Path)
	}

	cfg := EngineConfig{
		Path: "custom-engine",
		Args: []string{"--verbose"},
		Dir:  "/srv",
		Env:  map[string]string{"PYTHONUNBUFFERED": "1"},
	}
	cmd = cfg.Command(nil)
	if cmd.Path != "custom-engine" || cmd.Dir != "/srv" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if !reflect.DeepEqual(cmd.Args, []string{"--verbose"}) || !reflect.DeepEqual(cmd.Env, []string{"PYTHONUNBUFFERED=1"}) {
		t.Errorf("unexpected args/env %+v", cmd)
	}
	if !cmd.Equal(cfg.Command(nil)) {
		t.Error("same config should build equal commands")
	}
}
