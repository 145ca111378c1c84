package supervisor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var targetTriples = map[string]string{
	"linux/amd64":   "x86_64-unknown-linux-gnu",
	"linux/arm64":   "aarch64-unknown-linux-gnu",
	"linux/386":     "i686-unknown-linux-gnu",
	"linux/arm":     "armv7-unknown-linux-gnueabihf",
	"darwin/amd64":  "x86_64-apple-darwin",
	"darwin/arm64":  "aarch64-apple-darwin",
	"windows/amd64": "x86_64-pc-windows-msvc",
	"windows/arm64": "aarch64-pc-windows-msvc",
	"windows/386":   "i686-pc-windows-msvc",
}

// TargetTriple returns the platform suffix sidecar binaries are bundled with,
// or "" for platforms without one.
func TargetTriple(goos, goarch string) string {
	return targetTriples[goos+"/"+goarch]
}

// ResolveEngine finds the sidecar executable for name.
//
// dir defaults to the directory of the host executable. Candidates are
// dir/name then dir/name-<triple> (".exe" appended on Windows), then PATH.
// When nothing matches the bare name is returned and the spawn failure is
// left to the restart policy.
func ResolveEngine(name, dir string) string {
	if dir == "" {
		if exe, err := os.Executable(); err == nil {
			dir = filepath.Dir(exe)
		}
	}
	return resolveEngine(name, dir, runtime.GOOS, runtime.GOARCH, exec.LookPath)
}

func resolveEngine(name, dir, goos, goarch string, lookPath func(string) (string, error)) string {
	if name == "" || filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}

	ext := ""
	if goos == "windows" {
		ext = ".exe"
	}

	if dir != "" {
		candidates := []string{filepath.Join(dir, name+ext)}
		if triple := TargetTriple(goos, goarch); triple != "" {
			candidates = append(candidates, filepath.Join(dir, name+"-"+triple+ext))
		}
		for _, candidate := range candidates {
			if isExecutableFile(candidate) {
				return candidate
			}
		}
	}

	if path, err := lookPath(name); err == nil {
		return path
	}
	return name
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
