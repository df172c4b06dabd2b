package cmake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testBuilder() *Builder {
	return &Builder{
		BundleName:  "demo",
		InstallDir:  "/ws/install",
		SolutionDir: "/ws/build",
	}
}

func TestCompose_basicLayout(t *testing.T) {
	b := testBuilder()
	out := Render(b.Compose([]Repo{{Name: "core"}}, nil, nil))

	for _, want := range []string{
		"cmake_minimum_required(VERSION 3.17)",
		"project(demo)",
		`set(ENV{HDPS_INSTALL_DIR} "/ws/install")`,
		"add_subdirectory(core)",
		"set_property(DIRECTORY ${CMAKE_CURRENT_SOURCE_DIR} PROPERTY VS_STARTUP_PROJECT HDPS)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("manifest missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "VS_DEBUGGER_ENVIRONMENT") {
		t.Error("debugger path emitted without runtime paths")
	}
}

func TestCompose_binaryVariables(t *testing.T) {
	b := testBuilder()
	vars := []Variable{
		{Name: "QT_DIR", Values: []string{"/bin/qt/lib/cmake"}},
		{Name: "EXTRA_MODULES+", Values: []string{"modA", "modB"}},
		{Name: "MULTI", Values: []string{"a", "b"}},
		{Name: "", Values: []string{"/bin/qt/bin"}},
	}
	out := Render(b.Compose(nil, vars, nil))

	if !strings.Contains(out, `set(QT_DIR /bin/qt/lib/cmake CACHE PATH "")`) {
		t.Errorf("missing cache variable:\n%s", out)
	}
	if !strings.Contains(out, "list(APPEND EXTRA_MODULES modA modB)") {
		t.Errorf("append marker not honored:\n%s", out)
	}
	if !strings.Contains(out, `set(MULTI a;b CACHE PATH "")`) {
		t.Errorf("multi-valued variable not semicolon-joined:\n%s", out)
	}
	if !strings.Contains(out, `VS_DEBUGGER_ENVIRONMENT "PATH=/bin/qt/bin;%PATH%"`) {
		t.Errorf("runtime path not deferred into debugger environment:\n%s", out)
	}
}

func TestCompose_userVariablesOverrideAfterCatalog(t *testing.T) {
	b := testBuilder()
	vars := []Variable{{Name: "QT_DIR", Values: []string{"/bin/qt"}}}
	users := []UserVariable{
		{Name: "QT_DIR", Value: "/home/me/qt"},
		{Name: "USE_AVX", Value: "ON"},
	}
	out := Render(b.Compose(nil, vars, users))

	catalogIdx := strings.Index(out, "set(QT_DIR /bin/qt CACHE PATH")
	userIdx := strings.Index(out, "set(QT_DIR /home/me/qt CACHE PATH")
	if catalogIdx < 0 || userIdx < 0 || userIdx < catalogIdx {
		t.Errorf("user override must come after the catalog value:\n%s", out)
	}
	if !strings.Contains(out, `set(USE_AVX ON CACHE BOOL "")`) {
		t.Errorf("boolean literal not emitted as BOOL:\n%s", out)
	}
}

func TestCompose_localRepoOutOfTreeBinaryDir(t *testing.T) {
	b := testBuilder()
	repos := []Repo{{Name: "my-plugin", LocalPath: "/home/me/src/my-plugin"}}
	out := Render(b.Compose(repos, nil, nil))

	if !strings.Contains(out, `add_subdirectory("/home/me/src/my-plugin" "/ws/build/my-plugin")`) {
		t.Errorf("local repo inclusion wrong:\n%s", out)
	}
}

func TestCompose_dependencyStatements(t *testing.T) {
	b := testBuilder()
	repos := []Repo{{
		Name: "core",
		Dependencies: map[string][]string{
			"viewer": {"core", "imageio"},
			"core":   {},
		},
	}}
	out := Render(b.Compose(repos, nil, nil))

	if !strings.Contains(out, "add_dependencies(viewer core imageio)") {
		t.Errorf("dependency edge missing:\n%s", out)
	}
	if strings.Contains(out, "add_dependencies(core )") {
		t.Errorf("empty dependency list must not be emitted:\n%s", out)
	}
}

func TestCompose_deterministicOutput(t *testing.T) {
	b := testBuilder()
	repos := []Repo{{
		Name: "core",
		Dependencies: map[string][]string{
			"b": {"x"}, "a": {"y"}, "c": {"z"},
		},
	}}
	first := Render(b.Compose(repos, nil, nil))
	for range 20 {
		if got := Render(b.Compose(repos, nil, nil)); got != first {
			t.Fatal("manifest content varies across runs")
		}
	}
}

func TestRotate_firstBackupIsZero(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "old content")

	if err := Rotate(dir); err != nil {
		t.Fatal(err)
	}
	assertExists(t, filepath.Join(dir, "CMakeLists.000"))
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); !os.IsNotExist(err) {
		t.Error("current manifest should have been renamed away")
	}
}

func TestRotate_maxPlusOneGapTolerant(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "current")
	for _, n := range []string{"000", "001", "004"} {
		if err := os.WriteFile(filepath.Join(dir, "CMakeLists."+n), []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := Rotate(dir); err != nil {
		t.Fatal(err)
	}
	assertExists(t, filepath.Join(dir, "CMakeLists.005"))
}

func TestRotate_noManifestIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := Rotate(dir); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Error("rotate created files in an empty directory")
	}
}

func TestEmit_rotatesThenWrites(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "previous")

	b := testBuilder()
	path, err := b.Emit(dir, []Repo{{Name: "core"}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "add_subdirectory(core)") {
		t.Errorf("fresh manifest incomplete:\n%s", data)
	}

	backup, err := os.ReadFile(filepath.Join(dir, "CMakeLists.000"))
	if err != nil {
		t.Fatal("previous manifest was not rotated")
	}
	if string(backup) != "previous" {
		t.Errorf("backup content mangled: %q", backup)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".cmakelists-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestEmit_byteIdenticalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	b := testBuilder()
	repos := []Repo{{Name: "core", Dependencies: map[string][]string{"viewer": {"core"}}}}
	vars := []Variable{{Name: "QT_DIR", Values: []string{"/bin/qt"}}}

	path, err := b.Emit(dir, repos, vars, nil)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	path, err = b.Emit(dir, repos, vars, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Error("repeated emit produced different manifests")
	}
}

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}
