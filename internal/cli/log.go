package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the recorded-event stream",
}

var logTailCount int

func init() {
	logTailCmd.Flags().IntVarP(&logTailCount, "count", "n", 20, "number of records to show")
	logCmd.AddCommand(logTailCmd)
}

var logTailCmd = &cobra.Command{
	Use:   "tail <workstream-id>",
	Short: "Show the most recent recorded operations for a workstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		records := rt.journal.Tail(args[0], logTailCount)
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recorded operations.")
			return nil
		}
		for _, record := range records {
			status := "ok"
			if record.Error != "" {
				status = "error: " + record.Error
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-22s  %4dms  %s\n",
				record.StartedAt.Format("2006-01-02 15:04:05"),
				record.Op, record.DurationMS, status)
		}
		return nil
	},
}
