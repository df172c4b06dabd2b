// Package repo models one source repository entry of a build bundle
// and its sync, dirty-check and update operations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManiVaultStudio/DevBundle/internal/fsutil"
	"github.com/ManiVaultStudio/DevBundle/internal/git"
)

// Repositories live under the hdps organisation; the name in the
// configuration is both the repository and the checkout directory name.
const (
	remoteRoot    = "https://github.com/hdps/"
	remoteRootSSH = "git@github.com:hdps/"
)

// SyncError reports a failed clone or checkout, carrying the
// underlying transport error.
type SyncError struct {
	Repo string
	Err  error
}

func (e *SyncError) Error() string { return fmt.Sprintf("syncing %s: %v", e.Repo, e.Err) }
func (e *SyncError) Unwrap() error { return e.Err }

// UpdateError reports a failed fast-forward pull. Callers collect
// these instead of aborting the batch.
type UpdateError struct {
	Repo string
	Err  error
}

func (e *UpdateError) Error() string { return fmt.Sprintf("updating %s: %v", e.Repo, e.Err) }
func (e *UpdateError) Unwrap() error { return e.Err }

// Entry is one repository of a bundle. Disabled entries are filtered
// out before construction, so every Entry is active.
type Entry struct {
	// Name is the repository name and the directory under the source root.
	Name string
	// Branch to clone or check out; empty means the remote default.
	Branch string
	// Local is an absolute path override. Local entries are never
	// cloned, pulled or checked out, only referenced in the manifest.
	Local string
	// RemoteOverride replaces the derived hdps remote, for forks and
	// mirrors. The SSH/HTTPS switch does not apply to overrides.
	RemoteOverride string
	// Binaries are the prebuilt binary names this repository needs.
	Binaries []string
	// Dependencies maps a (sub-)project built from this repository to
	// the projects it must build after.
	Dependencies map[string][]string
}

// URL returns the remote location in HTTPS or SSH form.
func (e *Entry) URL(useSSH bool) string {
	if e.RemoteOverride != "" {
		return e.RemoteOverride
	}
	if useSSH {
		return remoteRootSSH + e.Name + ".git"
	}
	return remoteRoot + e.Name
}

// Dir returns the checkout directory under the source root.
func (e *Entry) Dir(sourceRoot string) string {
	return filepath.Join(sourceRoot, e.Name)
}

// IsLocal reports whether the entry references an out-of-tree path.
func (e *Entry) IsLocal() bool { return e.Local != "" }

// Sync brings the checkout to the configured branch: checkout in
// place when the repository exists, clone otherwise. The clone lands
// in a temporary sibling directory and is renamed into place, so an
// interrupted clone is never mistaken for a complete one. Local
// entries are a no-op.
func (e *Entry) Sync(sourceRoot string, useSSH, shallow bool) error {
	if e.IsLocal() {
		return nil
	}

	dir := e.Dir(sourceRoot)
	if git.IsCloned(dir) {
		if e.Branch == "" {
			return nil
		}
		if err := git.Checkout(dir, e.Branch); err != nil {
			return &SyncError{Repo: e.Name, Err: err}
		}
		return nil
	}

	tmp := filepath.Join(sourceRoot, "."+e.Name+".partial")
	if err := fsutil.RemoveAll(tmp); err != nil {
		return &SyncError{Repo: e.Name, Err: err}
	}
	opts := git.CloneOpts{
		Branch:            e.Branch,
		Shallow:           shallow,
		RecurseSubmodules: true,
	}
	if err := git.Clone(e.URL(useSSH), tmp, opts); err != nil {
		_ = fsutil.RemoveAll(tmp)
		return &SyncError{Repo: e.Name, Err: err}
	}
	if err := os.Rename(tmp, dir); err != nil {
		return &SyncError{Repo: e.Name, Err: err}
	}
	return nil
}

// HasLocalModifications reports whether the working tree has
// uncommitted or untracked changes. Not-yet-cloned and local entries
// are clean by definition.
func (e *Entry) HasLocalModifications(sourceRoot string) (bool, error) {
	if e.IsLocal() {
		return false, nil
	}
	dir := e.Dir(sourceRoot)
	if !git.IsCloned(dir) {
		return false, nil
	}
	return git.IsDirty(dir)
}

// PullLatest fast-forwards the checkout. Local and not-yet-cloned
// entries are a no-op. Failures come back as an UpdateError for the
// caller to collect.
func (e *Entry) PullLatest(sourceRoot string) error {
	if e.IsLocal() {
		return nil
	}
	dir := e.Dir(sourceRoot)
	if !git.IsCloned(dir) {
		return nil
	}
	if err := git.Pull(dir); err != nil {
		return &UpdateError{Repo: e.Name, Err: err}
	}
	return nil
}
