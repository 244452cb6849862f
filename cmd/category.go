package cmd

import (
	"github.com/shoptools/shoppush/internal/uploadcmd"
	"github.com/spf13/cobra"
)

func newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Shop category taxonomy tools",
		Long: `Tools for the shop's 3-level category taxonomy: refresh the local
snapshot and test how product text resolves to categories.`,
	}

	// Add category subcommands
	cmd.AddCommand(uploadcmd.NewCategoryRefreshCmd())
	cmd.AddCommand(uploadcmd.NewCategoryMatchCmd())

	return cmd
}
