package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbrennem-source/plancheck/internal/jobs"
)

var (
	listUser  string
	listLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage analysis jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		recent, err := app.store.ListRecent(cmd.Context(), listUser, listLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JOB\tFILE\tMODE\tSTATUS\tVERSION\tCREATED")
		for _, job := range recent {
			version := "-"
			if job.VersionGroup != "" {
				version = fmt.Sprintf("v%d", job.VersionNumber)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				job.ID, job.Filename, job.Mode, job.Status, version,
				job.CreatedAt.Local().Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one job's state, progress, and result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		job, err := app.store.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("no job %s", args[0])
		}

		out := map[string]any{
			"job_id":   job.ID,
			"filename": job.Filename,
			"mode":     job.Mode,
			"status":   job.Status,
			"created":  job.CreatedAt,
		}
		if job.ProgressStage != "" {
			out["progress"] = map[string]string{"stage": job.ProgressStage, "detail": job.ProgressDetail}
		}
		if job.ErrorMessage != "" {
			out["error"] = job.ErrorMessage
		}
		if job.VersionGroup != "" {
			out["version_group"] = job.VersionGroup
			out["version_number"] = job.VersionNumber
		}
		if session, err := app.store.GetSession(ctx, job.ID); err == nil && session != nil {
			out["result"] = json.RawMessage(session.Result)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending or processing job",
	Long: `Cancellation is cooperative: in-flight vision calls run to completion,
but the job's results are discarded and its state becomes cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		job, err := app.store.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("no job %s", args[0])
		}
		if job.Status.Terminal() {
			return fmt.Errorf("job %s is already %s", job.ID, job.Status)
		}
		if err := job.Transition(jobs.StatusCancelled); err != nil {
			return err
		}
		if err := app.store.UpdateJob(ctx, job); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %s cancelled\n", job.ID)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&listUser, "user", "", "filter by owning user")
	jobsListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum jobs to list")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
}
