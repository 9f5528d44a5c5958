package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// RootMarkers must all be present for a directory to count as the project root.
var RootMarkers = []string{ConfigFile, "pyproject.toml"}

// ErrRootNotFound is returned when no directory carries the root markers.
var ErrRootNotFound = errors.New("project root not found")

// RootOptions lists where FindRoot looks, in priority order.
type RootOptions struct {
	Override   string // explicit root, used as-is
	VirtualEnv string // active virtual environment; its ancestors are searched
	WorkingDir string // searched upward last
}

// RootOptionsFromEnv fills RootOptions from the process environment.
func RootOptionsFromEnv(override string) RootOptions {
	wd, _ := os.Getwd()
	return RootOptions{
		Override:   override,
		VirtualEnv: os.Getenv("VIRTUAL_ENV"),
		WorkingDir: wd,
	}
}

// FindRoot resolves the project root.
func FindRoot(opts RootOptions) (string, error) {
	if opts.Override != "" {
		root, err := filepath.Abs(opts.Override)
		if err != nil {
			return "", errors.Wrap(err, "resolve root override")
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return "", errors.Wrapf(ErrRootNotFound, "override %s is not a directory", root)
		}
		return root, nil
	}

	for _, start := range []string{opts.VirtualEnv, opts.WorkingDir} {
		if start == "" {
			continue
		}
		if root, ok := searchUpward(start); ok {
			return root, nil
		}
	}
	return "", errors.Wrapf(ErrRootNotFound, "no directory above %q contains %v", opts.WorkingDir, RootMarkers)
}

func searchUpward(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		if hasMarkers(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func hasMarkers(dir string) bool {
	for _, marker := range RootMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
			return false
		}
	}
	return true
}
