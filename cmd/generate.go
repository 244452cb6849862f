package cmd

import (
	"github.com/shoptools/shoppush/internal/uploadcmd"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	return uploadcmd.NewGenerateCmd()
}
