package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yourusername/loom/internal/hierarchy"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks within a plan",
}

var (
	taskWorkstream string
	taskPlan       string
	taskPriority   string
	taskDeps       []string
)

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskWorkstream, "workstream", "w", "", "workstream id")
	taskCmd.PersistentFlags().StringVarP(&taskPlan, "plan", "p", "", "plan id")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "high, medium, or low")
	taskAddCmd.Flags().StringSliceVar(&taskDeps, "depends-on", nil, "task ids this task depends on")
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskNextCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskShowCmd)
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title> [description]",
	Short: "Add a task to a plan",
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
		task, err := rt.ops.CreateTask(taskWorkstream, taskPlan, args[0], description,
			hierarchy.Priority(taskPriority), taskDeps)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s)\n", task.ID, task.Title)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <new-status>",
	Short: "Transition a task through its state machine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		task, err := rt.ops.UpdateTaskStatus(taskWorkstream, taskPlan, args[0],
			hierarchy.TaskStatus(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", task.ID, task.Status)
		return nil
	},
}

var taskNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Select the next runnable task (moves it to planning)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		task, diag, err := rt.ops.GetNextTask(taskWorkstream, taskPlan)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if task != nil {
			fmt.Fprintf(out, "Next: %s  [%s]  %s\n", task.ID, task.Priority, task.Title)
			return nil
		}
		if diag != nil && diag.Reason != "" {
			fmt.Fprintf(out, "Nothing runnable: %s\n", diag.Reason)
			return nil
		}
		if diag == nil || len(diag.Blocked) == 0 {
			fmt.Fprintln(out, "Nothing runnable: no pending tasks.")
			return nil
		}
		fmt.Fprintln(out, "Nothing runnable; blocked tasks:")
		for _, b := range diag.Blocked {
			fmt.Fprintf(out, "  %s  (%s)  waiting on %s\n", b.TaskID, b.Status, b.UnmetDependency)
		}
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task (fails while other tasks depend on it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.ops.DeleteTask(taskWorkstream, taskPlan, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task with its execution context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ws, err := rt.ops.SelectWorkstream(taskWorkstream)
		if err != nil {
			return err
		}
		plan, ok := ws.Plan(taskPlan)
		if !ok {
			return fmt.Errorf("plan not found: %s", taskPlan)
		}
		task, ok := plan.Task(args[0])
		if !ok {
			return fmt.Errorf("task not found: %s", args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  [%s]  %s\n", task.ID, task.Status, task.Title)
		if task.Description != "" {
			fmt.Fprintf(out, "  %s\n", task.Description)
		}
		fmt.Fprintf(out, "  priority: %s\n", task.Priority)
		if len(task.DependsOn) > 0 {
			fmt.Fprintf(out, "  depends on: %s\n", strings.Join(task.DependsOn, ", "))
		}
		for _, action := range task.Context.Actions {
			fmt.Fprintf(out, "  action %s: %s %s\n", action.At.Format("15:04:05"), action.Action, action.Detail)
		}
		for key, value := range task.Context.Results {
			fmt.Fprintf(out, "  result %s = %s\n", key, value)
		}
		if len(task.Context.TouchedFiles) > 0 {
			fmt.Fprintf(out, "  touched: %s\n", strings.Join(task.Context.TouchedFiles, ", "))
		}
		for _, msg := range task.Context.Errors {
			fmt.Fprintf(out, "  error: %s\n", msg)
		}
		return nil
	},
}
