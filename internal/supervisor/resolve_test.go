package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func noLookPath(string) (string, error) {
	return "", errors.New("not found")
}

func TestResolveEnginePrefersPlainName(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "biodockify-engine"))
	writeExecutable(t, filepath.Join(dir, "biodockify-engine-x86_64-unknown-linux-gnu"))

	got := resolveEngine("biodockify-engine", dir, "linux", "amd64", noLookPath)
	if want := filepath.Join(dir, "biodockify-engine"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolveEngineTripleSuffix(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "biodockify-engine-aarch64-unknown-linux-gnu"))

	got := resolveEngine("biodockify-engine", dir, "linux", "arm64", noLookPath)
	if want := filepath.Join(dir, "biodockify-engine-aarch64-unknown-linux-gnu"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolveEngineSkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "biodockify-engine"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := resolveEngine("biodockify-engine", dir, "linux", "amd64", noLookPath)
	if got != "biodockify-engine" {
		t.Errorf("expected bare name fallback, got %s", got)
	}
}

func TestResolveEngineFallsBackToPath(t *testing.T) {
	lookPath := func(name string) (string, error) {
		return "/usr/local/bin/" + name, nil
	}

	got := resolveEngine("biodockify-engine", t.TempDir(), "linux", "amd64", lookPath)
	if got != "/usr/local/bin/biodockify-engine" {
		t.Errorf("expected PATH result, got %s", got)
	}
}

func TestResolveEngineLeavesPathsAlone(t *testing.T) {
	for _, name := range []string{"/opt/engine", "./engine", "bin/engine", ""} {
		if got := resolveEngine(name, t.TempDir(), "linux", "amd64", noLookPath); got != name {
			t.Errorf("resolveEngine(%q) = %q", name, got)
		}
	}
}

func TestTargetTriple(t *testing.T) {
	if got := TargetTriple("windows", "amd64"); got != "x86_64-pc-windows-msvc" {
		t.Errorf("unexpected triple %q", got)
	}
	if got := TargetTriple("plan9", "amd64"); got != "" {
		t.Errorf("expected empty triple, got %q", got)
	}
}
