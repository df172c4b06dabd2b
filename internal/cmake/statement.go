package cmake

import (
	"fmt"
	"strings"
)

// Statement is one typed entry of the generated CMakeLists.txt.
// Statements carry what the manifest should contain; String renders
// the CMake syntax.
type Statement interface {
	String() string
}

// MinimumVersion declares the minimum CMake version.
type MinimumVersion struct {
	Version string
}

func (s MinimumVersion) String() string {
	return fmt.Sprintf("cmake_minimum_required(VERSION %s)\n", s.Version)
}

// Project declares the top-level project, named after the bundle.
type Project struct {
	Name string
}

func (s Project) String() string {
	return fmt.Sprintf("\nproject(%s)\n", s.Name)
}

// InstallDirGuard points HDPS_INSTALL_DIR at the bundle's install root
// unless the caller's environment already defines it.
type InstallDirGuard struct {
	Dir string
}

func (s InstallDirGuard) String() string {
	return fmt.Sprintf("\nif(NOT DEFINED ENV{HDPS_INSTALL_DIR})\n    set(ENV{HDPS_INSTALL_DIR} %q)\nendif()\n\n", s.Dir)
}

// CacheVariable sets a cache variable. Multi-valued entries are
// semicolon-joined, CMake's list form.
type CacheVariable struct {
	Name   string
	Values []string
	Bool   bool
}

func (s CacheVariable) String() string {
	kind := "PATH"
	if s.Bool {
		kind = "BOOL"
	}
	return fmt.Sprintf("set(%s %s CACHE %s \"\")\n", s.Name, strings.Join(s.Values, ";"), kind)
}

// AppendVariable appends values to a list variable.
type AppendVariable struct {
	Name   string
	Values []string
}

func (s AppendVariable) String() string {
	return fmt.Sprintf("list(APPEND %s %s)\n", s.Name, strings.Join(s.Values, " "))
}

// Subdirectory includes one repository in the aggregate build.
// BinaryDir is set for out-of-tree repositories so their build output
// lands under the bundle's solution root instead of colliding.
type Subdirectory struct {
	Dir       string
	BinaryDir string
}

func (s Subdirectory) String() string {
	if s.BinaryDir != "" {
		return fmt.Sprintf("add_subdirectory(%q %q)\n", s.Dir, s.BinaryDir)
	}
	return fmt.Sprintf("add_subdirectory(%s)\n", s.Dir)
}

// StartupProject marks the application's main target as the IDE
// startup project.
type StartupProject struct {
	Target string
}

func (s StartupProject) String() string {
	return fmt.Sprintf("\nset_property(DIRECTORY ${CMAKE_CURRENT_SOURCE_DIR} PROPERTY VS_STARTUP_PROJECT %s)\n", s.Target)
}

// DebuggerPath prepends the collected binary runtime directories to
// the debugger environment's PATH.
type DebuggerPath struct {
	Target string
	Paths  []string
}

func (s DebuggerPath) String() string {
	return fmt.Sprintf("set_target_properties(%s PROPERTIES VS_DEBUGGER_ENVIRONMENT \"PATH=%s;%%PATH%%\")\n",
		s.Target, strings.Join(s.Paths, ";"))
}

// Dependencies declares explicit inter-target build ordering.
type Dependencies struct {
	Target    string
	DependsOn []string
}

func (s Dependencies) String() string {
	return fmt.Sprintf("add_dependencies(%s %s)\n", s.Target, strings.Join(s.DependsOn, " "))
}

// Render serializes a statement list into manifest text.
func Render(stmts []Statement) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s.String())
	}
	return b.String()
}
