package cli

import (
	"github.com/spf13/cobra"
	"github.com/yourusername/loom/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Open the live status view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		return tui.Run(rt.st, rt.journal)
	},
}
