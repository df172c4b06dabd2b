package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ManiVaultStudio/DevBundle/internal/platform"
)

// fixtureJSON builds a configuration document keyed for the platform
// the test runs on, so resolution assertions hold everywhere.
func fixtureJSON() string {
	current := platform.Current()
	other := platform.Windows
	if current == other {
		other = platform.Linux
	}
	return fmt.Sprintf(`{
  "repo_info": {
    "core": {
      "binaries": ["QT5152"],
      "dependencies": ["PointData"],
      "sub_project_dependencies": {"ImageLoaderPlugin": ["ImageData"]}
    },
    "ImageData": {}
  },
  "prebuilt_binaries": {
    "QT5152": {
      "binaries": {"%[1]s": "https://example.com/qt.tgz", "%[2]s": "https://example.com/qt-other.tgz"},
      "bin_path": "bin",
      "bin_path_%[1]s": "lib",
      "cmake_variables": {"QT_DIR": "@lib/cmake", "QT_FLAGS+": ["a", "b"]},
      "cmake_variables_%[1]s": {"QT_DIR": "@lib/cmake/current"}
    }
  },
  "build_bundles": [
    {
      "name": "demo",
      "build_dir": "ws",
      "branch": "develop",
      "hdps_repos": [
        {"repo": "core"},
        {"repo": "ImageData", "branch": "feature/x"},
        {"repo": "old", "disable": true},
        {"repo": "my-plugin", "local": "/abs/plugin"}
      ]
    },
    {"name": "second", "build_dir": "/abs/ws2", "hdps_repos": [{"repo": "core"}]}
  ]
}`, current, other)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_jsonDocument(t *testing.T) {
	path := writeConfig(t, "config.json", fixtureJSON())
	cat, err := Load(path, "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !reflect.DeepEqual(cat.Names, []string{"demo", "second"}) {
		t.Errorf("bundle names = %v, want document order [demo second]", cat.Names)
	}

	configDir := filepath.Dir(path)
	demo, err := cat.Bundle("demo")
	if err != nil {
		t.Fatal(err)
	}
	if demo.BuildDir != filepath.Join(configDir, "ws") {
		t.Errorf("relative build_dir not anchored at config dir: %q", demo.BuildDir)
	}
	second, _ := cat.Bundle("second")
	if second.BuildDir != "/abs/ws2" {
		t.Errorf("absolute build_dir rewritten: %q", second.BuildDir)
	}

	if len(demo.Repos) != 3 {
		t.Fatalf("active repos = %d, want 3 (disabled dropped)", len(demo.Repos))
	}
	core := demo.Repos[0]
	if core.Name != "core" || core.Branch != "develop" {
		t.Errorf("core = %q@%q, want bundle default branch develop", core.Name, core.Branch)
	}
	if !reflect.DeepEqual(core.Binaries, []string{"QT5152"}) {
		t.Errorf("core binaries = %v", core.Binaries)
	}
	wantDeps := map[string][]string{
		"core":              {"PointData"},
		"ImageLoaderPlugin": {"ImageData"},
	}
	if !reflect.DeepEqual(core.Dependencies, wantDeps) {
		t.Errorf("core dependencies = %v, want %v", core.Dependencies, wantDeps)
	}
	if demo.Repos[1].Branch != "feature/x" {
		t.Errorf("per-repo branch override lost: %q", demo.Repos[1].Branch)
	}
	if demo.Repos[2].Local != "/abs/plugin" {
		t.Errorf("local override lost: %q", demo.Repos[2].Local)
	}

	if got := cat.Binaries.BinRoot(); got != filepath.Join(configDir, "binaries") {
		t.Errorf("default bin root = %q", got)
	}

	url, err := cat.Binaries.ResolveURL("QT5152")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://example.com/qt.tgz" {
		t.Errorf("url = %q, want the current platform's entry", url)
	}

	vars, err := cat.Binaries.ResolveBuildVariables("QT5152")
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 3 {
		t.Fatalf("expected QT_DIR, QT_FLAGS+ and the bin path entry, got %v", vars)
	}
	binRoot := cat.Binaries.BinRoot()
	if want := filepath.ToSlash(filepath.Join(binRoot, "QT5152", "lib/cmake/current")); vars[0].Values[0] != want {
		t.Errorf("platform variable override lost: %q, want %q", vars[0].Values[0], want)
	}
	if vars[1].Name != "QT_FLAGS+" || len(vars[1].Values) != 2 {
		t.Errorf("list variable mangled: %+v", vars[1])
	}
	if want := filepath.ToSlash(filepath.Join(binRoot, "QT5152", "lib")); vars[2].Name != "" || vars[2].Values[0] != want {
		t.Errorf("bin path override lost: %+v, want unnamed %q", vars[2], want)
	}
}

func TestLoad_yamlMatchesJSON(t *testing.T) {
	jsonPath := writeConfig(t, "config.json", fixtureJSON())
	fromJSON, err := Load(jsonPath, "")
	if err != nil {
		t.Fatal(err)
	}

	// Round-trip the document through YAML serialization: the catalog
	// must come out identical.
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(fixtureJSON()), &doc); err != nil {
		t.Fatal(err)
	}
	asYAML, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	yamlPath := writeConfig(t, "config.yaml", string(asYAML))
	fromYAML, err := Load(yamlPath, "")
	if err != nil {
		t.Fatalf("yaml load failed: %v", err)
	}

	if !reflect.DeepEqual(fromJSON.Names, fromYAML.Names) {
		t.Errorf("bundle names differ: %v vs %v", fromJSON.Names, fromYAML.Names)
	}
	jv, err := fromJSON.Binaries.ResolveBuildVariables("QT5152")
	if err != nil {
		t.Fatal(err)
	}
	yv, err := fromYAML.Binaries.ResolveBuildVariables("QT5152")
	if err != nil {
		t.Fatal(err)
	}
	// Bin roots differ per file location; compare names and shapes.
	if len(jv) != len(yv) {
		t.Fatalf("variable counts differ: %d vs %d", len(jv), len(yv))
	}
	for i := range jv {
		if jv[i].Name != yv[i].Name || len(jv[i].Values) != len(yv[i].Values) {
			t.Errorf("variable %d differs: %+v vs %+v", i, jv[i], yv[i])
		}
	}
}

func TestLoad_binRootOverride(t *testing.T) {
	path := writeConfig(t, "config.json", fixtureJSON())
	override := filepath.Join(t.TempDir(), "cache")
	cat, err := Load(path, override)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Binaries.BinRoot() != override {
		t.Errorf("bin root = %q, want %q", cat.Binaries.BinRoot(), override)
	}
}

func TestBundle_unknownNameListsKnown(t *testing.T) {
	path := writeConfig(t, "config.json", fixtureJSON())
	cat, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = cat.Bundle("nope")
	if err == nil {
		t.Fatal("expected an error for an unknown bundle")
	}
	if !strings.Contains(err.Error(), "demo") {
		t.Errorf("error should list known bundles: %v", err)
	}
}

func TestParse_validation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no bundles",
			doc:  `{"repo_info": {}}`,
			want: "no build_bundles",
		},
		{
			name: "bundle without name",
			doc:  `{"build_bundles": [{"build_dir": "ws"}]}`,
			want: "without a name",
		},
		{
			name: "missing build_dir",
			doc:  `{"build_bundles": [{"name": "demo"}]}`,
			want: "build_dir is required",
		},
		{
			name: "duplicate bundle name",
			doc:  `{"build_bundles": [{"name": "demo", "build_dir": "a"}, {"name": "demo", "build_dir": "b"}]}`,
			want: "duplicate bundle name",
		},
		{
			name: "repo without name",
			doc:  `{"build_bundles": [{"name": "demo", "build_dir": "ws", "hdps_repos": [{"branch": "main"}]}]}`,
			want: "without a repo name",
		},
		{
			name: "unknown platform in url table",
			doc: `{"prebuilt_binaries": {"QT": {"binaries": {"Amiga": "https://x"}}},
			       "build_bundles": [{"name": "demo", "build_dir": "ws"}]}`,
			want: "unknown platform",
		},
		{
			name: "unknown platform suffix",
			doc: `{"prebuilt_binaries": {"QT": {"bin_path_Amiga": "bin"}},
			       "build_bundles": [{"name": "demo", "build_dir": "ws"}]}`,
			want: "unknown platform",
		},
		{
			name: "non-string variable value",
			doc: `{"prebuilt_binaries": {"QT": {"cmake_variables": {"N": 42}}},
			       "build_bundles": [{"name": "demo", "build_dir": "ws"}]}`,
			want: "string",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var doc map[string]any
			if err := yaml.Unmarshal([]byte(tc.doc), &doc); err != nil {
				t.Fatal(err)
			}
			_, err := Parse(doc, t.TempDir(), t.TempDir())
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}
