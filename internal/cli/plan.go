package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yourusername/loom/internal/hierarchy"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage plans within a workstream",
}

var planWorkstream string

func init() {
	planCmd.PersistentFlags().StringVarP(&planWorkstream, "workstream", "w", "", "workstream id")
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planDoneCmd)
	planCmd.AddCommand(planArchiveCmd)
}

var planCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a plan",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		plan, err := rt.ops.CreatePlan(planWorkstream, args[0], description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s (%s)\n", plan.ID, plan.Name)
		return nil
	},
}

var planDoneCmd = &cobra.Command{
	Use:   "done <plan-id>",
	Short: "Mark a plan completed (all tasks must be terminal)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		plan, err := rt.ops.UpdatePlanStatus(planWorkstream, args[0], hierarchy.PlanCompleted)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plan %s completed\n", plan.ID)
		return nil
	},
}

var planArchiveCmd = &cobra.Command{
	Use:   "archive <plan-id>",
	Short: "Archive a plan (soft delete)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		plan, err := rt.ops.ArchivePlan(planWorkstream, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plan %s archived\n", plan.ID)
		return nil
	},
}
