package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbrennem-source/plancheck/internal/config"
	"github.com/tbrennem-source/plancheck/internal/fingerprint"
	"github.com/tbrennem-source/plancheck/internal/jobs"
	"github.com/tbrennem-source/plancheck/internal/pipeline"
	"github.com/tbrennem-source/plancheck/internal/providers"
	"github.com/tbrennem-source/plancheck/internal/render"
	"github.com/tbrennem-source/plancheck/internal/types"
)

var (
	analyzeMode    string
	analyzeUser    string
	analyzePermit  string
	analyzeAddress string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pdf> [<pdf>...]",
	Short: "Analyze one or more plan-set PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		logger := slog.Default()

		// Recover anything a previous crash left in processing.
		watchdog := jobs.NewWatchdog(
			app.store,
			time.Duration(app.cfg.Jobs.StaleAfterMinutes)*time.Minute,
			time.Duration(app.cfg.Jobs.SweepIntervalMinutes)*time.Minute,
			logger,
		)
		if _, err := watchdog.RunOnce(ctx); err != nil {
			logger.Warn("stale sweep failed", "error", err)
		}

		client := providers.NewOpenAIClient(app.cfg.ProviderClientConfig())
		pipe := pipeline.New(client, render.NewPopplerRenderer(), app.store, logger, pipelineConfig(app.cfg))
		pool := jobs.NewPool(pipe, app.cfg.Jobs.Workers, logger)

		// A config-file edit mid-run retunes rates, model, and timeouts for
		// jobs that have not started yet.
		app.manager.OnChange(func(cfg *config.Config) {
			pipe.Reconfigure(pipelineConfig(cfg))
			logger.Info("configuration reloaded", "model", cfg.Provider.Model)
		})
		app.manager.WatchConfig()

		mode := app.cfg.Analysis.Mode
		if analyzeMode != "" {
			mode = analyzeMode
		}

		var submitted []string
		for _, path := range args {
			job, err := buildJob(path, types.ParseMode(mode))
			if err != nil {
				return err
			}
			// The row must exist before dispatch so a crash mid-flight
			// leaves a recoverable trace.
			if err := app.store.CreateJob(ctx, job); err != nil {
				return fmt.Errorf("create job for %s: %w", path, err)
			}
			if err := pool.Submit(job); err != nil {
				return fmt.Errorf("submit job for %s: %w", path, err)
			}
			submitted = append(submitted, job.ID)
			logger.Info("job submitted", "job_id", job.ID, "file", filepath.Base(path), "mode", mode)
		}

		done := make(chan struct{})
		go func() {
			pool.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("interrupted, cancelling in-flight jobs")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = pool.Shutdown(shutdownCtx)
		}

		return printJobReports(cmd, app, submitted)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "analysis mode: compliance, sample, or full")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "owning user identifier")
	analyzeCmd.Flags().StringVar(&analyzePermit, "permit", "", "permit number, if known")
	analyzeCmd.Flags().StringVar(&analyzeAddress, "address", "", "property address, if known")
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		DPI:         cfg.Analysis.DPI,
		CallTimeout: cfg.CallTimeout(),
		MaxTokens:   cfg.Analysis.MaxTokens,
		Model:       cfg.Provider.Model,
		Rates:       cfg.Rates(),
	}
}

func buildJob(path string, mode types.Mode) (*jobs.Job, error) {
	pdf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	job := &jobs.Job{
		ID:              uuid.NewString(),
		UserID:          analyzeUser,
		Filename:        filepath.Base(path),
		FileSize:        int64(len(pdf)),
		Mode:            mode,
		Status:          jobs.StatusPending,
		PermitNumber:    analyzePermit,
		PropertyAddress: analyzeAddress,
		PDF:             pdf,
	}

	// Hashing in-memory bytes cannot fail; the hash-failed flag exists for
	// upload paths that stream from an unreliable source.
	job.ContentHash = fingerprint.ContentHash(pdf)
	return job, nil
}

func printJobReports(cmd *cobra.Command, app *app, jobIDs []string) error {
	ctx := cmd.Context()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	var failed bool
	for _, id := range jobIDs {
		job, err := app.store.GetJob(ctx, id)
		if err != nil {
			return err
		}
		if job == nil {
			continue
		}

		report := map[string]any{
			"job_id":   job.ID,
			"filename": job.Filename,
			"status":   job.Status,
		}
		if job.ErrorMessage != "" {
			report["error"] = job.ErrorMessage
		}
		if job.VersionGroup != "" {
			report["version_group"] = job.VersionGroup
			report["version_number"] = job.VersionNumber
			if job.ParentJobID != "" {
				report["previous_version"] = job.ParentJobID
			}
		}
		if session, err := app.store.GetSession(ctx, id); err == nil && session != nil {
			report["result"] = json.RawMessage(session.Result)
		}
		if err := enc.Encode(report); err != nil {
			return err
		}
		if job.Status != jobs.StatusCompleted {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("not all jobs completed")
	}
	return nil
}
