package main

import (
	"github.com/spf13/cobra"

	"github.com/ManiVaultStudio/DevBundle/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devbundle",
		Short:   "Multi-repo development workspaces for HDPS plugin builds",
		Version: version,
	}

	cmd.PersistentFlags().String("config", config.DefaultFile, "Path to the configuration file")

	cmd.AddCommand(
		newListCmd(),
		newUseCmd(),
	)

	return cmd
}

func loadCatalog(cmd *cobra.Command, binRoot string) (*config.Catalog, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, binRoot)
}
