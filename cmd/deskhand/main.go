package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deskhand/internal/agent"
	"deskhand/internal/config"
	"deskhand/internal/logging"
)

var (
	configPath string
	debug      bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deskhand",
	Short: "deskhand - natural language desktop assistant",
	Long: `deskhand interprets plain-language commands and carries them out on
your machine: navigating folders, managing files, running workflows.

Every destructive action is recorded in a transactional ledger first,
so "undo" always works. Typos are corrected, ambiguous commands ask
for clarification, and chained commands ("do X then Y") run as
workflows that halt on the first failure.

Run without arguments to start the interactive prompt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if debug {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.Logging.File, cfg.Logging.Debug); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return runREPL(signalContext(), a)
	},
}

// runCmd executes a single command and exits
var runCmd = &cobra.Command{
	Use:   "run [command...]",
	Short: "Execute one natural language command",
	Long: `Interprets and executes a single command, then exits.

Example:
  deskhand run create folder invoices in documents
  deskhand run "go to downloads then list files"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Handle(signalContext(), strings.Join(args, " "))
		if err != nil {
			return reportError(err)
		}
		printResult(res)
		return nil
	},
}

// undoCmd reverses recent actions
var undoCmd = &cobra.Command{
	Use:   "undo [n]",
	Short: "Reverse the most recent action(s)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 1
		if len(args) == 1 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed <= 0 {
				return fmt.Errorf("bad count %q", args[0])
			}
			n = parsed
		}
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Gate().Undo(n)
		if err != nil {
			return err
		}
		for _, r := range results {
			switch {
			case r.Applied:
				fmt.Printf("undid %s\n", r.Action.Kind)
			case r.Err != nil:
				fmt.Printf("stopped: %s failed: %v\n", r.Action.Kind, r.Err)
			default:
				fmt.Printf("%s: %s\n", r.Action.Kind, r.Note)
			}
		}
		if len(results) == 0 {
			fmt.Println("nothing to undo")
		}
		return nil
	},
}

// undoSinceCmd reverses everything inside a time window
var undoSinceCmd = &cobra.Command{
	Use:   "undo-since [duration]",
	Short: "Reverse everything done in the last duration (e.g. 2h, 30m)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := time.ParseDuration(args[0])
		if err != nil || window <= 0 {
			return fmt.Errorf("bad duration %q", args[0])
		}
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Gate().UndoSince(time.Now().Add(-window))
		if err != nil {
			return err
		}
		fmt.Printf("processed %d action(s)\n", len(results))
		return nil
	},
}

// timelineCmd shows the undo ledger
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the undo ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.Gate().Timeline(30)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("ledger is empty")
			return nil
		}
		for _, row := range rows {
			target := row.Params["path"]
			if target == "" {
				target = row.Params["source"]
			}
			fmt.Printf("%s  %-14s %-8s %s\n",
				row.Timestamp.Format("2006-01-02 15:04:05"), row.Kind, row.Status, target)
		}
		return nil
	},
}

// historyCmd shows the event log
var historyCmd = &cobra.Command{
	Use:   "history [n]",
	Short: "Show recent activity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 20
		if len(args) == 1 {
			if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		a, err := agent.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Store().Recent(n)
		if err != nil {
			return err
		}
		for _, ev := range events {
			fmt.Printf("%s  %-14s %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Kind, ev.Raw)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(undoSinceCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(workflowCmd)
}

// signalContext cancels on SIGINT/SIGTERM so workflows stop between
// steps.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
