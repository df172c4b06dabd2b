// Package bundle materializes one named workspace: safety checks,
// directory layout, repository syncs, binary resolution and manifest
// emission.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ManiVaultStudio/DevBundle/internal/binaries"
	"github.com/ManiVaultStudio/DevBundle/internal/cmake"
	"github.com/ManiVaultStudio/DevBundle/internal/fsutil"
	"github.com/ManiVaultStudio/DevBundle/internal/repo"
	"github.com/ManiVaultStudio/DevBundle/internal/ui"
)

// Mode selects how far materialization may mutate the workspace.
type Mode string

const (
	// ModeClean deletes and recreates the workspace from scratch.
	ModeClean Mode = "clean"
	// ModeCMakeOnly leaves the checkouts as-is and only regenerates
	// the manifest.
	ModeCMakeOnly Mode = "cmake_only"
	// ModeUpdateOnly fast-forwards every checkout and stops.
	ModeUpdateOnly Mode = "update_only"
)

// ParseMode parses a mode string, defaulting to "clean".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeClean, "":
		return ModeClean, nil
	case ModeCMakeOnly:
		return ModeCMakeOnly, nil
	case ModeUpdateOnly:
		return ModeUpdateOnly, nil
	default:
		return "", fmt.Errorf("unknown mode: %q (must be clean, cmake_only or update_only)", s)
	}
}

// State is the terminal state of one materialization.
type State string

const (
	// StateManifestWritten is the success state: the workspace is laid
	// out and a fresh manifest is in place.
	StateManifestWritten State = "manifest-written"
	// StateAbortedDirty means the safety gate tripped: local changes
	// would have been lost, nothing was mutated.
	StateAbortedDirty State = "aborted-dirty"
	// StateUpdated is the terminal state of update_only runs.
	StateUpdated State = "updated"
)

// Result reports how a materialization ended.
type Result struct {
	State        State
	ManifestPath string
	// DirtyRepos names the repositories that tripped the safety gate.
	DirtyRepos []string
	// UpdateFailures collects per-repository pull errors from
	// update_only runs; they never abort the batch.
	UpdateFailures []error
}

// Bundle is one named workspace configuration: an ordered set of
// active repositories plus the shared binary catalog.
type Bundle struct {
	Name     string
	BuildDir string
	// Derived layout, all absolute.
	SourceDir   string
	InstallDir  string
	SolutionDir string
	// Branch is the default branch for repositories that do not pin
	// their own.
	Branch   string
	Repos    []*repo.Entry
	Binaries *binaries.Catalog
}

// New resolves the workspace layout for a bundle. buildDir may be
// relative; it is resolved to an absolute path here, once.
func New(name, buildDir, branch string, repos []*repo.Entry, cat *binaries.Catalog) (*Bundle, error) {
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, fmt.Errorf("resolving build dir for bundle %s: %w", name, err)
	}
	return &Bundle{
		Name:        name,
		BuildDir:    abs,
		SourceDir:   filepath.Join(abs, "source"),
		InstallDir:  filepath.Join(abs, "install"),
		SolutionDir: filepath.Join(abs, "build"),
		Branch:      branch,
		Repos:       repos,
		Binaries:    cat,
	}, nil
}

// Options configures one materialization run.
type Options struct {
	Mode    Mode
	UseSSH  bool
	Shallow bool
	// SkipBinaries excludes prebuilt binaries the user provides
	// themselves.
	SkipBinaries []string
	// UserVariables are NAME=VALUE overrides appended after the
	// catalog variables, so they win for colliding names.
	UserVariables []cmake.UserVariable
	// LaunchConfigurator starts cmake-gui on the finished workspace.
	LaunchConfigurator bool
	Out                io.Writer
}

// Materialize drives the bundle through its phases: safety check,
// layout, per-repository sync, binary resolution and manifest
// emission. Completed steps are left in place when a later one fails.
func (b *Bundle) Materialize(ctx context.Context, opts Options) (*Result, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	if opts.Mode == ModeUpdateOnly {
		return b.updateAll(out), nil
	}

	if opts.Mode != ModeCMakeOnly {
		if aborted, dirty, err := b.cleanGate(opts.Mode, out); err != nil {
			return nil, err
		} else if aborted {
			return &Result{State: StateAbortedDirty, DirtyRepos: dirty}, nil
		}
		if err := b.recreateLayout(); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(b.SourceDir, 0755); err != nil {
		return nil, fmt.Errorf("creating source dir: %w", err)
	}

	binaryNames, err := b.syncRepos(opts, out)
	if err != nil {
		return nil, err
	}
	for _, skip := range opts.SkipBinaries {
		delete(binaryNames, skip)
	}

	binaryVars, err := b.resolveBinaries(ctx, binaryNames, out)
	if err != nil {
		return nil, err
	}

	builder := &cmake.Builder{
		BundleName:  b.Name,
		InstallDir:  b.InstallDir,
		SolutionDir: b.SolutionDir,
	}
	manifestPath, err := builder.Emit(b.SourceDir, b.manifestRepos(), binaryVars, opts.UserVariables)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Manifest written: %s\n", manifestPath)

	if opts.LaunchConfigurator {
		b.launchConfigurator(out)
	}

	return &Result{State: StateManifestWritten, ManifestPath: manifestPath}, nil
}

// updateAll fast-forwards every active repository, collecting
// per-repository failures so one bad remote does not block the rest.
func (b *Bundle) updateAll(out io.Writer) *Result {
	progress := ui.NewProgress(out, len(b.Repos))
	var failures []error
	for _, r := range b.Repos {
		if err := r.PullLatest(b.SourceDir); err != nil {
			failures = append(failures, err)
			progress.Done(r.Name + " failed")
			continue
		}
		progress.Done(r.Name + " up to date")
	}
	if len(failures) > 0 {
		progress.Log("%d of %d repositories failed to update:", len(failures), len(b.Repos))
		for _, err := range failures {
			progress.Log("  %v", err)
		}
	}
	return &Result{State: StateUpdated, UpdateFailures: failures}
}

// cleanGate refuses a destructive clean while any active repository
// has local modifications. It reports the full offending set and
// performs no filesystem mutation.
func (b *Bundle) cleanGate(mode Mode, out io.Writer) (aborted bool, dirty []string, err error) {
	if mode != ModeClean {
		return false, nil, nil
	}
	if _, statErr := os.Stat(b.BuildDir); os.IsNotExist(statErr) {
		return false, nil, nil
	}

	for _, r := range b.Repos {
		d, err := r.HasLocalModifications(b.SourceDir)
		if err != nil {
			return false, nil, fmt.Errorf("checking %s for local changes: %w", r.Name, err)
		}
		if d {
			dirty = append(dirty, r.Name)
		}
	}
	if len(dirty) == 0 {
		return false, nil, nil
	}

	fmt.Fprintf(out, "Refusing to clean %s: local changes in %s\n", b.BuildDir, strings.Join(dirty, ", "))
	fmt.Fprintln(out, "Commit, stash or revert the changes, or rerun with --mode cmake_only. Nothing was changed.")
	return true, dirty, nil
}

// recreateLayout deletes the build root and creates the four fixed
// workspace directories.
func (b *Bundle) recreateLayout() error {
	if _, err := os.Stat(b.BuildDir); err == nil {
		if err := fsutil.RemoveAll(b.BuildDir); err != nil {
			return err
		}
	}
	for _, dir := range []string{b.BuildDir, b.SourceDir, b.InstallDir, b.SolutionDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// syncRepos brings every active repository to its configured branch
// and returns the union of the binary names they reference.
func (b *Bundle) syncRepos(opts Options, out io.Writer) (map[string]struct{}, error) {
	progress := ui.NewProgress(out, len(b.Repos))
	names := make(map[string]struct{})
	for _, r := range b.Repos {
		if opts.Mode != ModeCMakeOnly {
			if err := r.Sync(b.SourceDir, opts.UseSSH, opts.Shallow); err != nil {
				return nil, err
			}
		}
		progress.Done(r.Name)
		for _, n := range r.Binaries {
			names[n] = struct{}{}
		}
	}
	return names, nil
}

// resolveBinaries materializes the referenced binaries in sorted name
// order, so manifests are byte-identical across runs, and accumulates
// their resolved build variables.
func (b *Bundle) resolveBinaries(ctx context.Context, names map[string]struct{}, out io.Writer) ([]cmake.Variable, error) {
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var vars []cmake.Variable
	for _, name := range sorted {
		if err := b.Binaries.Materialize(ctx, name); err != nil {
			if errors.Is(err, binaries.ErrNoPlatformURL) {
				return nil, fmt.Errorf("%w; skip the binary to build without it", err)
			}
			return nil, err
		}
		resolved, err := b.Binaries.ResolveBuildVariables(name)
		if err != nil {
			return nil, err
		}
		vars = append(vars, resolved...)
		fmt.Fprintf(out, "Binary %s ready\n", name)
	}
	return vars, nil
}

// manifestRepos maps the active repository list to manifest inclusions.
func (b *Bundle) manifestRepos() []cmake.Repo {
	repos := make([]cmake.Repo, 0, len(b.Repos))
	for _, r := range b.Repos {
		repos = append(repos, cmake.Repo{
			Name:         r.Name,
			LocalPath:    r.Local,
			Dependencies: r.Dependencies,
		})
	}
	return repos
}

// launchConfigurator starts the external cmake-gui on the generated
// workspace. Fire-and-forget: its exit status is not inspected.
func (b *Bundle) launchConfigurator(out io.Writer) {
	cmd := exec.Command("cmake-gui", "-S", b.SourceDir, "-B", b.SolutionDir)
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(out, "Warning: could not launch cmake-gui: %v\n", err)
		return
	}
	_ = cmd.Process.Release()
}
