package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManiVaultStudio/DevBundle/internal/bundle"
	"github.com/ManiVaultStudio/DevBundle/internal/ui"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [bundle]",
		Short: "List the configured build bundles",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runList,
	}
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd, "")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		b, err := cat.Bundle(args[0])
		if err != nil {
			return err
		}
		return printBundle(out, b)
	}

	tbl := ui.NewTable(out, "NAME", "BUILD DIR", "BRANCH", "REPOS")
	for _, name := range cat.Names {
		b := cat.Bundles[name]
		tbl.Row(b.Name, b.BuildDir, branchLabel(b.Branch), len(b.Repos))
	}
	return tbl.Flush()
}

func printBundle(out io.Writer, b *bundle.Bundle) error {
	fmt.Fprintf(out, "Bundle:    %s\n", b.Name)
	fmt.Fprintf(out, "Build dir: %s\n", b.BuildDir)
	fmt.Fprintf(out, "Branch:    %s\n", branchLabel(b.Branch))
	fmt.Fprintln(out)

	tbl := ui.NewTable(out, "REPO", "BRANCH", "LOCAL", "BINARIES")
	for _, r := range b.Repos {
		tbl.Row(r.Name, branchLabel(r.Branch), r.Local, strings.Join(r.Binaries, ","))
	}
	return tbl.Flush()
}

func branchLabel(branch string) string {
	if branch == "" {
		return "(default)"
	}
	return branch
}
