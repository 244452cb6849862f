package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shoppush",
		Short: "Product listing generator and uploader for WeChat Channels Shop",
		Long: `Shoppush generates product listing copy with LLMs and publishes listings
to the WeChat Channels Shop catalog.

It resolves free-text product descriptions to the shop's 3-level category
taxonomy, completes mandatory listing fields, and pushes batches of products
through a rate-limited, retrying uploader.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newCategoryCmd())

	return cmd
}
