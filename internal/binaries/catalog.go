// Package binaries resolves prebuilt third-party dependencies: their
// per-platform download URLs, their CMake variable bindings and their
// idempotent materialization under the binary root.
package binaries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ManiVaultStudio/DevBundle/internal/cmake"
	"github.com/ManiVaultStudio/DevBundle/internal/platform"
)

// RelativeMarker prefixes a variable value that resolves relative to
// the binary's unpack directory.
const RelativeMarker = "@"

// ErrNoPlatformURL reports that a binary defines no download for the
// current platform. The caller decides whether that is fatal.
var ErrNoPlatformURL = errors.New("no download URL for this platform")

// UnknownBinaryError reports a reference to a binary name the catalog
// does not define.
type UnknownBinaryError struct {
	Name string
}

func (e *UnknownBinaryError) Error() string {
	return fmt.Sprintf("%s is not a defined binary - check the configuration for errors", e.Name)
}

// Entry holds the layered configuration of one prebuilt binary.
type Entry struct {
	// URLs maps platform to download URL.
	URLs map[platform.Platform]string
	// BinPath is the subpath of the installed runtime binaries,
	// optionally overridden per platform.
	BinPath          string
	BinPathOverrides map[platform.Platform]string
	// Variables maps CMake variable name to value(s), optionally
	// overridden per platform. A leading RelativeMarker on a value
	// anchors it at the binary's unpack directory; a trailing '+' on
	// a name selects list-append emission in the manifest.
	Variables         map[string][]string
	VariableOverrides map[platform.Platform]map[string][]string
}

// Catalog is the shared, read-only set of prebuilt binaries parsed
// from one configuration file.
type Catalog struct {
	binRoot string
	current platform.Platform
	entries map[string]Entry
	fetcher *Fetcher
}

// NewCatalog creates a catalog rooted at binRoot, resolving for the
// given platform.
func NewCatalog(binRoot string, current platform.Platform, entries map[string]Entry, logger *slog.Logger) *Catalog {
	return &Catalog{
		binRoot: binRoot,
		current: current,
		entries: entries,
		fetcher: NewFetcher(logger),
	}
}

// BinRoot returns the directory binaries are unpacked under.
func (c *Catalog) BinRoot() string { return c.binRoot }

// Names returns all defined binary names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is defined.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// ResolveURL returns the download URL of name for the current
// platform. Returns an UnknownBinaryError for undefined names and
// ErrNoPlatformURL when no URL exists for this platform.
func (c *Catalog) ResolveURL(name string) (string, error) {
	e, ok := c.entries[name]
	if !ok {
		return "", &UnknownBinaryError{Name: name}
	}
	url, ok := e.URLs[c.current]
	if !ok || url == "" {
		return "", fmt.Errorf("binary %s: %w", name, ErrNoPlatformURL)
	}
	return url, nil
}

// ResolveBuildVariables merges the binary's common variable table with
// its platform-specific override table (platform wins) and resolves
// marker values against the unpack directory. The result is sorted by
// variable name; if the binary declares a bin path, one trailing
// unnamed entry carries its resolved runtime directory.
func (c *Catalog) ResolveBuildVariables(name string) ([]cmake.Variable, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, &UnknownBinaryError{Name: name}
	}

	merged := make(map[string][]string, len(e.Variables))
	for k, v := range e.Variables {
		merged[k] = v
	}
	for k, v := range e.VariableOverrides[c.current] {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]cmake.Variable, 0, len(keys)+1)
	for _, k := range keys {
		values := make([]string, len(merged[k]))
		for i, v := range merged[k] {
			values[i] = c.resolveValue(name, v)
		}
		vars = append(vars, cmake.Variable{Name: k, Values: values})
	}

	binPath := e.BinPath
	if override, ok := e.BinPathOverrides[c.current]; ok {
		binPath = override
	}
	if binPath != "" {
		vars = append(vars, cmake.Variable{
			Name:   "",
			Values: []string{c.resolveValue(name, RelativeMarker+binPath)},
		})
	}

	return vars, nil
}

// resolveValue rewrites a marker-prefixed value to an absolute path
// under binRoot/name, normalized to forward slashes. Literals pass
// through unchanged.
func (c *Catalog) resolveValue(name, value string) string {
	if !strings.HasPrefix(value, RelativeMarker) {
		return value
	}
	rel := strings.TrimPrefix(value, RelativeMarker)
	return filepath.ToSlash(filepath.Join(c.binRoot, name, rel))
}

// Materialize downloads and unpacks the named binary. It is a no-op
// when the unpack directory already exists; the download is skipped
// when the archive file is already present. The archive is unpacked
// into a temporary directory renamed into place, so an interrupted
// extraction is never mistaken for a complete one.
func (c *Catalog) Materialize(ctx context.Context, name string) error {
	if !c.Has(name) {
		return &UnknownBinaryError{Name: name}
	}

	dest := filepath.Join(c.binRoot, name)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := os.MkdirAll(c.binRoot, 0755); err != nil {
		return fmt.Errorf("creating binary root: %w", err)
	}

	archive := filepath.Join(c.binRoot, name+".tgz")
	if _, err := os.Stat(archive); os.IsNotExist(err) {
		url, err := c.ResolveURL(name)
		if err != nil {
			return err
		}
		if err := c.fetcher.FetchFile(ctx, url, archive); err != nil {
			return err
		}
	}

	tmp := dest + ".partial"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clearing stale unpack directory: %w", err)
	}
	if err := c.fetcher.Unpack(ctx, archive, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("finalizing %s: %w", name, err)
	}
	return nil
}
