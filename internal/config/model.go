// Package config parses the layered configuration document into named
// bundles and the shared binary catalog.
package config

// The raw* types mirror the document structure one-to-one; Parse
// decodes into them with mapstructure before any validation or
// resolution happens.

// rawDocument is the whole configuration file: global repository
// metadata, the prebuilt binary definitions and the ordered bundle
// list.
type rawDocument struct {
	RepoInfo map[string]rawRepoInfo `mapstructure:"repo_info"`
	Binaries map[string]rawBinary   `mapstructure:"prebuilt_binaries"`
	Bundles  []rawBundle            `mapstructure:"build_bundles"`
}

// rawRepoInfo is the bundle-independent metadata of one repository.
type rawRepoInfo struct {
	// Dependencies are the build-order edges of the project named like
	// the repository itself.
	Dependencies []string `mapstructure:"dependencies"`
	// SubProjectDependencies maps a sub-project built from this
	// repository to the projects it must build after.
	SubProjectDependencies map[string][]string `mapstructure:"sub_project_dependencies"`
	// Binaries are the prebuilt binary names this repository needs.
	Binaries []string `mapstructure:"binaries"`
}

// rawBinary is one prebuilt binary definition. The platform-suffixed
// keys (bin_path_Windows, cmake_variables_Linux, ...) land in Rest and
// are folded into overrides during parsing.
type rawBinary struct {
	URLs      map[string]string `mapstructure:"binaries"`
	BinPath   string            `mapstructure:"bin_path"`
	Variables map[string]any    `mapstructure:"cmake_variables"`
	Rest      map[string]any    `mapstructure:",remain"`
}

// rawBundle is one entry of the ordered build_bundles list.
type rawBundle struct {
	Name     string       `mapstructure:"name"`
	BuildDir string       `mapstructure:"build_dir"`
	Branch   string       `mapstructure:"branch"`
	Repos    []rawRepoRef `mapstructure:"hdps_repos"`
}

// rawRepoRef references one repository from a bundle, with per-bundle
// overrides.
type rawRepoRef struct {
	Repo    string `mapstructure:"repo"`
	Branch  string `mapstructure:"branch"`
	Local   string `mapstructure:"local"`
	Disable bool   `mapstructure:"disable"`
}
