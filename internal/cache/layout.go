package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"didbase/internal/types"
)

// File suffixes for the durable binary artifact and the transient raw text.
const (
	ArtifactSuffix = ".didb"
	RawSuffix      = ".txt"
)

// Layout resolves cache file paths under a single root directory.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Root: dir}
}

// Ensure creates the cache directory if it is missing and verifies that the
// root is a directory.
func (l Layout) Ensure() error {
	if l.Root == "" {
		return types.NewAppError(types.ErrCodeCacheIO, "cache directory is not configured", nil)
	}
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("creating cache directory %s", l.Root), err,
			map[string]any{"path": l.Root})
	}
	info, err := os.Stat(l.Root)
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("inspecting cache directory %s", l.Root), err,
			map[string]any{"path": l.Root})
	}
	if !info.IsDir() {
		return types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("%s is not a directory", l.Root), nil,
			map[string]any{"path": l.Root})
	}
	return nil
}

// ArtifactPath is the binary artifact path for a unit.
func (l Layout) ArtifactPath(u types.FetchUnit) string {
	return filepath.Join(l.Root, u.Stem()+ArtifactSuffix)
}

// RawPath is the raw text path for a unit; it shares the artifact's stem.
func (l Layout) RawPath(u types.FetchUnit) string {
	return filepath.Join(l.Root, u.Stem()+RawSuffix)
}

// Remove deletes path if it exists. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("removing %s", path), err,
			map[string]any{"path": path})
	}
	return nil
}
