// Package main implements memoryctl, the CLI front door to the agent memory
// store: creating/querying guidelines, knowledge, tools, and experiences,
// managing scopes and file locks, and running librarian maintenance.
//
// # File Index
//
//   - main.go         - entry point, rootCmd, global flags, init()
//   - cmd_entry.go    - guideline/knowledge/tool create and experience record/outcome commands
//   - cmd_query.go    - query and scope commands
//   - cmd_lock.go     - file-lock acquire/release/list commands
//   - cmd_maintain.go - librarian maintenance and audit trail commands
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentmemory/internal/config"
	"agentmemory/internal/core"
	"agentmemory/internal/logging"
)

var (
	verbose   bool
	workspace string

	logger *zap.Logger
	store  *core.Store
)

var rootCmd = &cobra.Command{
	Use:   "memoryctl",
	Short: "memoryctl - local-first agent memory store",
	Long: `memoryctl manages a persistent, versioned, scope-partitioned knowledge
base for AI coding agents: guidelines, knowledge, tools, and experiences,
searchable by full-text, fuzzy, semantic, and relation-graph recall.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}

		cfg, err := config.Load(filepath.Join(ws, ".memory", "config.yaml"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !filepath.IsAbs(cfg.Storage.DatabasePath) {
			cfg.Storage.DatabasePath = filepath.Join(ws, cfg.Storage.DatabasePath)
		}

		store, err = core.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open memory store: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")

	rootCmd.AddCommand(
		guidelineCmd,
		knowledgeCmd,
		toolCmd,
		experienceCmd,
		queryCmd,
		scopeCmd,
		lockCmd,
		maintainCmd,
		auditCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
