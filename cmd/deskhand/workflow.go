package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deskhand/internal/agent"
)

var (
	workflowDelay string
	monitorDir    string
)

// workflowCmd groups workflow operations
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run, schedule, and resume multi-step workflows",
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available workflow templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, name := range a.Workflows().TemplateNames() {
			fmt.Println(name)
		}
		return nil
	},
}

var workflowRunCmd = &cobra.Command{
	Use:   "run [template]",
	Short: "Run a named workflow template",
	Long: `Runs a workflow template step by step, halting on the first failure.

With --delay the workflow is persisted and started after the delay, so
it can be resumed by id if interrupted.

Example:
  deskhand workflow run "organize downloads"
  deskhand workflow run "backup documents" --delay 10m`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		plan, err := a.Workflows().Template(strings.Join(args, " "))
		if err != nil {
			return err
		}

		ctx := signalContext()
		if workflowDelay != "" {
			delay, perr := time.ParseDuration(workflowDelay)
			if perr != nil || delay <= 0 {
				return fmt.Errorf("bad delay %q", workflowDelay)
			}
			if err := a.Workflows().Schedule(ctx, plan, delay); err != nil {
				return err
			}
			fmt.Printf("scheduled %s (id %s) in %s\n", plan.Name, plan.ID, delay)
			<-ctx.Done()
			return nil
		}

		outcomes, err := a.Workflows().Run(ctx, plan)
		for i, out := range outcomes {
			switch {
			case out.Err != nil:
				fmt.Printf("%d. %s failed: %v\n", i+1, out.Command, out.Err)
			case out.Skipped:
				fmt.Printf("%d. %s skipped\n", i+1, out.Command)
			default:
				fmt.Printf("%d. %s\n", i+1, out.Message)
			}
		}
		return err
	},
}

var workflowResumeCmd = &cobra.Command{
	Use:   "resume [plan-id]",
	Short: "Resume an interrupted workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		outcomes, err := a.Workflows().Resume(signalContext(), args[0])
		fmt.Printf("ran %d step(s)\n", len(outcomes))
		return err
	},
}

var workflowPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List interrupted workflows that can be resumed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		plans, err := a.Store().ListPlans()
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			fmt.Println("no pending workflows")
			return nil
		}
		for _, p := range plans {
			fmt.Printf("%s  %s (next step %d)\n", p.ID, p.Name, p.NextStep+1)
		}
		return nil
	},
}

var workflowMonitorCmd = &cobra.Command{
	Use:   "monitor [template]",
	Short: "Watch a folder and run a template for each new file",
	Long: `Watches a folder and runs the named template whenever a file appears
in it. The literal {file} in template commands is replaced with the
new file's path. Runs until interrupted.

Example:
  deskhand workflow monitor "organize downloads" --dir ~/Downloads`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if monitorDir == "" {
			return fmt.Errorf("--dir is required")
		}
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		plan, err := a.Workflows().Template(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return a.Workflows().Monitor(signalContext(), a.Session().ResolveLocation(monitorDir), plan)
	},
}

func init() {
	workflowRunCmd.Flags().StringVar(&workflowDelay, "delay", "", "schedule the workflow after this delay")
	workflowMonitorCmd.Flags().StringVar(&monitorDir, "dir", "", "folder to watch")

	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowRunCmd)
	workflowCmd.AddCommand(workflowResumeCmd)
	workflowCmd.AddCommand(workflowPendingCmd)
	workflowCmd.AddCommand(workflowMonitorCmd)
}
