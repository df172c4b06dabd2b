// Package cmake generates the top-level CMakeLists.txt that aggregates
// a bundle's repositories, binary variables and dependency edges.
package cmake

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// ManifestName is the file the external build tool consumes.
	ManifestName = "CMakeLists.txt"

	// minimumVersion is the oldest CMake the generated manifest supports.
	minimumVersion = "3.17"

	// StartupTarget is the application's main target.
	StartupTarget = "HDPS"
)

// Variable is one resolved build variable from the binary catalog.
// An empty Name defers the value into the runtime search path instead
// of a build variable; a trailing '+' on the name selects list-append
// emission.
type Variable struct {
	Name   string
	Values []string
}

// UserVariable is a user-supplied NAME=VALUE override. It is emitted
// after the catalog variables, so explicit user intent wins.
type UserVariable struct {
	Name  string
	Value string
}

// Repo describes one repository inclusion plus its dependency edges.
type Repo struct {
	Name string
	// LocalPath is set for out-of-tree repositories referenced in place.
	LocalPath string
	// Dependencies maps sub-project name to the projects it builds after.
	Dependencies map[string][]string
}

// Builder composes and writes the manifest for one bundle.
type Builder struct {
	BundleName  string
	InstallDir  string
	SolutionDir string
}

// booleanLiterals are the values emitted as BOOL cache variables.
var booleanLiterals = map[string]bool{"ON": true, "OFF": true, "TRUE": true, "FALSE": true}

// Compose builds the ordered statement list for the manifest.
func (b *Builder) Compose(repos []Repo, binaryVars []Variable, userVars []UserVariable) []Statement {
	stmts := []Statement{
		MinimumVersion{Version: minimumVersion},
		Project{Name: b.BundleName},
		InstallDirGuard{Dir: filepath.ToSlash(b.InstallDir)},
	}

	var runtimePaths []string
	for _, v := range binaryVars {
		switch {
		case v.Name == "":
			runtimePaths = append(runtimePaths, v.Values...)
		case strings.HasSuffix(v.Name, "+"):
			stmts = append(stmts, AppendVariable{Name: strings.TrimSuffix(v.Name, "+"), Values: v.Values})
		default:
			stmts = append(stmts, CacheVariable{Name: v.Name, Values: v.Values})
		}
	}

	for _, u := range userVars {
		stmts = append(stmts, CacheVariable{
			Name:   u.Name,
			Values: []string{u.Value},
			Bool:   booleanLiterals[u.Value],
		})
	}

	for _, r := range repos {
		if r.LocalPath != "" {
			stmts = append(stmts, Subdirectory{
				Dir:       filepath.ToSlash(r.LocalPath),
				BinaryDir: filepath.ToSlash(filepath.Join(b.SolutionDir, r.Name)),
			})
			continue
		}
		stmts = append(stmts, Subdirectory{Dir: r.Name})
	}

	stmts = append(stmts, StartupProject{Target: StartupTarget})
	if len(runtimePaths) > 0 {
		stmts = append(stmts, DebuggerPath{Target: StartupTarget, Paths: runtimePaths})
	}

	for _, r := range repos {
		projects := make([]string, 0, len(r.Dependencies))
		for p := range r.Dependencies {
			projects = append(projects, p)
		}
		sort.Strings(projects)
		for _, p := range projects {
			if len(r.Dependencies[p]) == 0 {
				continue
			}
			stmts = append(stmts, Dependencies{Target: p, DependsOn: r.Dependencies[p]})
		}
	}

	return stmts
}

// Emit rotates any existing manifest in dir and writes a fresh one.
// The new manifest is written to a temporary file and renamed into
// place, so a failed write never leaves a truncated manifest behind.
// Returns the manifest path.
func (b *Builder) Emit(dir string, repos []Repo, binaryVars []Variable, userVars []UserVariable) (string, error) {
	if err := Rotate(dir); err != nil {
		return "", err
	}

	content := Render(b.Compose(repos, binaryVars, userVars))
	target := filepath.Join(dir, ManifestName)

	tmp, err := os.CreateTemp(dir, ".cmakelists-*")
	if err != nil {
		return "", fmt.Errorf("creating manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replacing manifest: %w", err)
	}
	return target, nil
}

// backupPattern matches numbered manifest backups (CMakeLists.007).
var backupPattern = regexp.MustCompile(`^CMakeLists\.(\d{3})$`)

// Rotate renames an existing CMakeLists.txt in dir to the next free
// numbered backup. The first backup is CMakeLists.000; afterwards the
// highest existing number plus one, tolerating gaps.
func Rotate(dir string) error {
	current := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(current); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scanning manifest backups: %w", err)
	}

	next := 0
	for _, e := range entries {
		m := backupPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		if n+1 > next {
			next = n + 1
		}
	}

	backup := filepath.Join(dir, fmt.Sprintf("CMakeLists.%03d", next))
	if err := os.Rename(current, backup); err != nil {
		return fmt.Errorf("rotating manifest: %w", err)
	}
	return nil
}
