package golang

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// findGoBinary locates the Go binary on the system
func findGoBinary() (string, error) {
	// First, try the standard PATH lookup
	if path, err := exec.LookPath("go"); err == nil {
		return path, nil
	}

	var candidates []string
	if goRoot := os.Getenv("GOROOT"); goRoot != "" {
		candidates = append(candidates, filepath.Join(goRoot, "bin", "go"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		// gvm installs one toolchain per directory, the latest sorts last
		gvmDir := filepath.Join(home, ".gvm", "gos")
		if entries, err := os.ReadDir(gvmDir); err == nil {
			for i := len(entries) - 1; i >= 0; i-- {
				entry := entries[i]
				if entry.IsDir() && strings.HasPrefix(entry.Name(), "go") {
					candidates = append(candidates, filepath.Join(gvmDir, entry.Name(), "bin", "go"))
				}
			}
		}
		candidates = append(candidates, filepath.Join(home, ".goenv", "shims", "go"))
	}

	candidates = append(candidates, "/usr/local/go/bin/go", "/usr/bin/go", "/snap/bin/go")
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("go binary not found in PATH or common locations")
}
