package cmd

import (
	"github.com/shoptools/shoppush/internal/uploadcmd"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	return uploadcmd.NewUploadCmd()
}
