package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/ManiVaultStudio/DevBundle/internal/binaries"
	"github.com/ManiVaultStudio/DevBundle/internal/bundle"
	"github.com/ManiVaultStudio/DevBundle/internal/platform"
	"github.com/ManiVaultStudio/DevBundle/internal/repo"
)

// DefaultFile is the configuration file name used when --config is not
// given.
const DefaultFile = "config.json"

// Platform-suffixed binary keys. The suffix names the platform the
// override applies to.
const (
	binPathKeyPrefix   = "bin_path_"
	variablesKeyPrefix = "cmake_variables_"
)

// Catalog is one fully parsed configuration file: the named bundles in
// document order and the binary catalog they share.
type Catalog struct {
	// Names lists the bundle names in document order.
	Names    []string
	Bundles  map[string]*bundle.Bundle
	Binaries *binaries.Catalog
}

// Bundle looks up a bundle by name, listing the known names on a miss.
func (c *Catalog) Bundle(name string) (*bundle.Bundle, error) {
	b, ok := c.Bundles[name]
	if !ok {
		return nil, fmt.Errorf("no bundle named %q (known bundles: %s)", name, strings.Join(c.Names, ", "))
	}
	return b, nil
}

// Load reads and parses a configuration file. The document is YAML,
// which covers the JSON files in the wild too. Relative paths in the
// document anchor at the file's directory; binRoot overrides where
// binaries unpack, defaulting to <config dir>/binaries.
func Load(path, binRoot string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving configuration path: %w", err)
	}
	anchor := filepath.Dir(abs)
	if binRoot == "" {
		binRoot = filepath.Join(anchor, "binaries")
	}
	return Parse(doc, anchor, binRoot)
}

// Parse builds the catalog from an already-unmarshalled document.
// anchor resolves relative build_dir values; binRoot is where binaries
// unpack.
func Parse(doc map[string]any, anchor, binRoot string) (*Catalog, error) {
	var raw rawDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &raw})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	if len(raw.Bundles) == 0 {
		return nil, fmt.Errorf("configuration: no build_bundles defined")
	}

	entries, err := binaryEntries(raw.Binaries)
	if err != nil {
		return nil, err
	}
	shared := binaries.NewCatalog(binRoot, platform.Current(), entries, nil)

	cat := &Catalog{
		Bundles:  make(map[string]*bundle.Bundle, len(raw.Bundles)),
		Binaries: shared,
	}
	for _, rb := range raw.Bundles {
		if rb.Name == "" {
			return nil, fmt.Errorf("configuration: bundle without a name")
		}
		if _, dup := cat.Bundles[rb.Name]; dup {
			return nil, fmt.Errorf("configuration: duplicate bundle name %q", rb.Name)
		}
		if rb.BuildDir == "" {
			return nil, fmt.Errorf("configuration: bundle %s: build_dir is required", rb.Name)
		}

		repos, err := activeRepos(rb, raw.RepoInfo)
		if err != nil {
			return nil, err
		}
		buildDir := rb.BuildDir
		if !filepath.IsAbs(buildDir) {
			buildDir = filepath.Join(anchor, buildDir)
		}
		b, err := bundle.New(rb.Name, buildDir, rb.Branch, repos, shared)
		if err != nil {
			return nil, err
		}
		cat.Bundles[rb.Name] = b
		cat.Names = append(cat.Names, rb.Name)
	}
	return cat, nil
}

// activeRepos resolves a bundle's repository references against the
// global repo_info metadata. Disabled references are dropped here, so
// they contribute nothing downstream.
func activeRepos(rb rawBundle, info map[string]rawRepoInfo) ([]*repo.Entry, error) {
	entries := make([]*repo.Entry, 0, len(rb.Repos))
	for _, ref := range rb.Repos {
		if ref.Repo == "" {
			return nil, fmt.Errorf("configuration: bundle %s: repository entry without a repo name", rb.Name)
		}
		if ref.Disable {
			continue
		}

		branch := ref.Branch
		if branch == "" {
			branch = rb.Branch
		}

		meta := info[ref.Repo]
		deps := make(map[string][]string, len(meta.SubProjectDependencies)+1)
		for project, list := range meta.SubProjectDependencies {
			deps[project] = list
		}
		// A flat dependencies list belongs to the project named like
		// the repository itself.
		if len(meta.Dependencies) > 0 {
			deps[ref.Repo] = meta.Dependencies
		}

		entries = append(entries, &repo.Entry{
			Name:         ref.Repo,
			Branch:       branch,
			Local:        ref.Local,
			Binaries:     meta.Binaries,
			Dependencies: deps,
		})
	}
	return entries, nil
}

// binaryEntries converts the raw binary section, folding the
// platform-suffixed keys captured in Rest into the override tables.
func binaryEntries(raw map[string]rawBinary) (map[string]binaries.Entry, error) {
	entries := make(map[string]binaries.Entry, len(raw))
	for name, rb := range raw {
		e := binaries.Entry{BinPath: rb.BinPath}

		if len(rb.URLs) > 0 {
			e.URLs = make(map[platform.Platform]string, len(rb.URLs))
			for key, url := range rb.URLs {
				p, err := platform.Parse(key)
				if err != nil {
					return nil, fmt.Errorf("configuration: binary %s: %w", name, err)
				}
				e.URLs[p] = url
			}
		}

		vars, err := variableTable(rb.Variables)
		if err != nil {
			return nil, fmt.Errorf("configuration: binary %s: %w", name, err)
		}
		e.Variables = vars

		for key, val := range rb.Rest {
			switch {
			case strings.HasPrefix(key, variablesKeyPrefix):
				p, err := platform.Parse(strings.TrimPrefix(key, variablesKeyPrefix))
				if err != nil {
					return nil, fmt.Errorf("configuration: binary %s: key %s: %w", name, key, err)
				}
				table, ok := val.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("configuration: binary %s: %s must be a mapping", name, key)
				}
				overrides, err := variableTable(table)
				if err != nil {
					return nil, fmt.Errorf("configuration: binary %s: key %s: %w", name, key, err)
				}
				if e.VariableOverrides == nil {
					e.VariableOverrides = make(map[platform.Platform]map[string][]string)
				}
				e.VariableOverrides[p] = overrides

			case strings.HasPrefix(key, binPathKeyPrefix):
				p, err := platform.Parse(strings.TrimPrefix(key, binPathKeyPrefix))
				if err != nil {
					return nil, fmt.Errorf("configuration: binary %s: key %s: %w", name, key, err)
				}
				s, ok := val.(string)
				if !ok {
					return nil, fmt.Errorf("configuration: binary %s: %s must be a string", name, key)
				}
				if e.BinPathOverrides == nil {
					e.BinPathOverrides = make(map[platform.Platform]string)
				}
				e.BinPathOverrides[p] = s
			}
			// Other unknown keys are tolerated; documents in the wild
			// carry annotations.
		}

		entries[name] = e
	}
	return entries, nil
}

// variableTable normalizes a cmake_variables mapping: every value is a
// string or a list of strings.
func variableTable(raw map[string]any) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	table := make(map[string][]string, len(raw))
	for name, val := range raw {
		values, err := stringValues(val)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		table[name] = values
	}
	return table, nil
}

func stringValues(val any) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list values must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value must be a string or a list of strings, got %T", val)
	}
}
