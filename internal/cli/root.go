// Package cli is the command-dispatch layer: it converts flags and
// arguments into typed orchestrator calls and renders the results. All
// mutation goes through the recorder-wrapped operation set.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yourusername/loom/internal/config"
	"github.com/yourusername/loom/internal/eventbus"
	"github.com/yourusername/loom/internal/logging"
	"github.com/yourusername/loom/internal/orchestrator"
	"github.com/yourusername/loom/internal/recorder"
	"github.com/yourusername/loom/internal/store"
)

var rootCmd = &cobra.Command{
	Use:     "loom",
	Short:   "Hierarchical task tracker for long-running assistant work",
	Long:    `Loom tracks workstreams, plans, and tasks across sessions, selects the next runnable task, and records every operation as an event stream.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(wsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// runtime wires the orchestration stack for one command invocation.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *eventbus.Bus
	st      *store.FileStore
	journal *recorder.Journal
	rec     *recorder.Recorder
	// ops is the recorder-wrapped operation set; commands never call the
	// orchestrator directly.
	ops orchestrator.Operations
}

// newRuntime builds the stack rooted at the current directory. The
// project must have been initialized with `loom init` first.
func newRuntime() (*runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	return newRuntimeAt(cwd)
}

func newRuntimeAt(projectDir string) (*runtime, error) {
	if _, err := os.Stat(filepath.Join(projectDir, config.LoomDir)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("not a loom project (run 'loom init' first)")
		}
		return nil, err
	}
	cfg, err := config.New(projectDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(eventbus.WithLogger(logger))
	st, err := store.NewFileStore(cfg.WorkstreamsDir())
	if err != nil {
		logger.Close()
		return nil, err
	}
	orch, err := orchestrator.New(st,
		orchestrator.WithBus(bus),
		orchestrator.WithSingleFocus(cfg.SingleFocus()),
	)
	if err != nil {
		logger.Close()
		return nil, err
	}
	journal, err := recorder.NewJournal(cfg.EventsDir())
	if err != nil {
		logger.Close()
		return nil, err
	}
	rec := recorder.New(orch, bus, journal,
		recorder.WithWorkers(cfg.Recorder().Workers),
		recorder.WithQueueSize(cfg.Recorder().QueueSize),
		recorder.WithAttemptLimit(cfg.Recorder().AttemptLimit()),
		recorder.WithLogger(logger),
	)
	return &runtime{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		st:      st,
		journal: journal,
		rec:     rec,
		ops:     rec,
	}, nil
}

// Close drains pending records and releases the log file.
func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.rec != nil {
		rt.rec.Close()
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .loom directory in the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := config.InitLoomDir(cwd); err != nil {
			return fmt.Errorf("initialize %s: %w", config.LoomDir, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s/\n", config.LoomDir)
		return nil
	},
}
