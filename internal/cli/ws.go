package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var wsCmd = &cobra.Command{
	Use:   "ws",
	Short: "Manage workstreams",
}

func init() {
	wsCmd.AddCommand(wsCreateCmd)
	wsCmd.AddCommand(wsListCmd)
	wsCmd.AddCommand(wsShowCmd)
	wsCmd.AddCommand(wsArchiveCmd)
}

var wsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new workstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ws, err := rt.ops.CreateWorkstream(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workstream %s (%s)\n", ws.ID, ws.Name)
		return nil
	},
}

var wsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known workstreams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		summaries, err := rt.ops.ListWorkstreams()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No workstreams.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPLANS\tTASKS")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.Name, s.Status, s.PlanCount, s.TaskCount)
		}
		return w.Flush()
	},
}

var wsShowCmd = &cobra.Command{
	Use:   "show <workstream-id>",
	Short: "Show one workstream with its plans",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ws, err := rt.ops.SelectWorkstream(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s  [%s]\n", ws.ID, ws.Name, ws.Status)
		for _, plan := range ws.PlansByCreation() {
			fmt.Fprintf(out, "  %s  %s  [%s]  %d tasks\n", plan.ID, plan.Name, plan.Status, len(plan.Tasks))
			for _, task := range plan.TasksByCreation() {
				fmt.Fprintf(out, "    %s  %-11s  %-6s  %s\n", task.ID, task.Status, task.Priority, task.Title)
			}
		}
		return nil
	},
}

var wsArchiveCmd = &cobra.Command{
	Use:   "archive <workstream-id>",
	Short: "Archive a workstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ws, err := rt.ops.ArchiveWorkstream(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived workstream %s\n", ws.ID)
		return nil
	},
}
