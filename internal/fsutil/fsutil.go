// Package fsutil provides the destructive filesystem primitives used
// when recreating a workspace.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RemoveAll deletes path recursively. If the first attempt fails it
// clears the read-only bit on everything underneath and retries once;
// git object files are read-only on Windows and break a plain removal.
// Any error on the retry is returned to the caller.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err == nil {
		return nil
	}

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // entry already gone
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0200 == 0 {
			_ = os.Chmod(p, info.Mode().Perm()|0200)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("preparing %s for removal: %w", path, walkErr)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
