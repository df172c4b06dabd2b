package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManiVaultStudio/DevBundle/internal/bundle"
	"github.com/ManiVaultStudio/DevBundle/internal/cmake"
)

func newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [bundle]",
		Short: "Materialize a build bundle into its workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runUse,
	}
	cmd.Flags().String("mode", "clean", "Materialization mode: clean, cmake_only, update_only")
	cmd.Flags().Bool("ssh", false, "Clone repositories over SSH")
	cmd.Flags().Bool("shallow", false, "Shallow clones (depth 1)")
	cmd.Flags().StringSlice("skip-binary", nil, "Skip these prebuilt binaries")
	cmd.Flags().StringArray("set", nil, "Extra cmake cache variable (NAME=VALUE)")
	cmd.Flags().Bool("launch-gui", false, "Launch cmake-gui on the generated workspace")
	cmd.Flags().String("bin-root", "", "Where prebuilt binaries unpack (default: <config dir>/binaries)")
	return cmd
}

func runUse(cmd *cobra.Command, args []string) error {
	modeStr, _ := cmd.Flags().GetString("mode")
	useSSH, _ := cmd.Flags().GetBool("ssh")
	shallow, _ := cmd.Flags().GetBool("shallow")
	skipBinaries, _ := cmd.Flags().GetStringSlice("skip-binary")
	sets, _ := cmd.Flags().GetStringArray("set")
	launchGUI, _ := cmd.Flags().GetBool("launch-gui")
	binRoot, _ := cmd.Flags().GetString("bin-root")

	mode, err := bundle.ParseMode(modeStr)
	if err != nil {
		return err
	}
	userVars, err := parseUserVariables(sets)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cmd, binRoot)
	if err != nil {
		return err
	}

	for _, skip := range skipBinaries {
		if !cat.Binaries.Has(skip) {
			return fmt.Errorf("unknown binary %q in --skip-binary (defined: %s)",
				skip, strings.Join(cat.Binaries.Names(), ", "))
		}
	}

	name, err := resolveBundleName(args, cat.Names)
	if err != nil {
		return err
	}
	b, err := cat.Bundle(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// A clean over an existing workspace is destructive; ask first when
	// a human is driving.
	if mode == bundle.ModeClean && isInteractive() {
		if _, statErr := os.Stat(b.BuildDir); statErr == nil {
			ok, err := promptConfirm(fmt.Sprintf("Delete and recreate %s?", b.BuildDir))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}
	}

	res, err := b.Materialize(cmd.Context(), bundle.Options{
		Mode:               mode,
		UseSSH:             useSSH,
		Shallow:            shallow,
		SkipBinaries:       skipBinaries,
		UserVariables:      userVars,
		LaunchConfigurator: launchGUI,
		Out:                out,
	})
	if err != nil {
		return err
	}

	switch res.State {
	case bundle.StateUpdated:
		if len(res.UpdateFailures) == 0 {
			fmt.Fprintln(out, "Update complete.")
		}
	case bundle.StateManifestWritten:
		fmt.Fprintf(out, "Bundle %s ready.\n", b.Name)
	}
	// StateAbortedDirty already reported the offending repositories.
	return nil
}

// resolveBundleName takes the bundle from the argument list or, on a
// terminal, prompts for one.
func resolveBundleName(args, known []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if !isInteractive() {
		return "", fmt.Errorf("bundle name required (known bundles: %s)", strings.Join(known, ", "))
	}
	return promptBundleName(known)
}

func parseUserVariables(sets []string) ([]cmake.UserVariable, error) {
	vars := make([]cmake.UserVariable, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q (expected NAME=VALUE)", s)
		}
		vars = append(vars, cmake.UserVariable{Name: name, Value: value})
	}
	return vars, nil
}
