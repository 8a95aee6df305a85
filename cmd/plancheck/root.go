package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbrennem-source/plancheck/internal/config"
	"github.com/tbrennem-source/plancheck/internal/home"
	"github.com/tbrennem-source/plancheck/internal/store"
	"github.com/tbrennem-source/plancheck/version"
)

var (
	cfgFile string
	homeDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "plancheck",
	Short: "Compliance analysis for architectural plan sets",
	Long: `Plancheck analyzes permit plan-set PDFs with a vision model and reports
a fixed list of compliance checks: title-block completeness, stamp and
signature presence, cross-page consistency, and cover-sheet requirements.

Repeat uploads of the same project are detected by content hash,
structural fingerprint, or metadata, and linked into a version chain.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.plancheck/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "plancheck home directory (default: ~/.plancheck)",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles the shared service dependencies of a command invocation.
type app struct {
	cfg     *config.Config
	manager *config.Manager
	home    *home.Dir
	store   *store.Store
}

func newApp() (*app, error) {
	dir, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := dir.EnsureExists(); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && dir.ConfigExists() {
		path = dir.ConfigPath()
	}
	manager, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dir.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	return &app{cfg: manager.Get(), manager: manager, home: dir, store: st}, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
