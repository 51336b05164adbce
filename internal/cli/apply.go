package cli

import (
	"context"
	"fmt"

	"talentloop/internal/handoff"
	"talentloop/internal/transport"
	"talentloop/internal/types"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [job-id]",
	Short: "Apply for a job and prepare its interview",
	Long: `Submit an application for a job and record the job, the resume and the
candidate so that "system-check" and "interview" can run for it. Any
previous interview result is cleared.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var applyConfig struct {
	ResumeID   string
	ResumeName string
	Candidate  string
}

func init() {
	applyCmd.Flags().StringVar(&applyConfig.ResumeID, "resume-id", "", "ID of the stored resume to interview with (required)")
	applyCmd.Flags().StringVar(&applyConfig.ResumeName, "resume-name", "", "File name of the resume (default: resume.pdf)")
	applyCmd.Flags().StringVar(&applyConfig.Candidate, "candidate", "", "Candidate ID (default: the signed-in user)")
	_ = applyCmd.MarkFlagRequired("resume-id")
}

func runApply(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(rt *env) error {
		ctx := cmd.Context()
		jobID := args[0]

		app, err := rt.client.Apply(ctx, jobID)
		if err != nil {
			return err
		}

		job := findJob(ctx, rt.client, jobID, app)
		candidate := applyConfig.Candidate
		if candidate == "" {
			if h, err := rt.store.Load(ctx); err == nil && h.User != nil {
				candidate = h.User.ID
			}
		}

		if err := handoff.BeginApplication(ctx, rt.store, job, candidate, applyConfig.ResumeID, applyConfig.ResumeName); err != nil {
			return err
		}

		rt.logger.Info("Application recorded",
			"application_id", app.ID,
			"job_id", job.ID,
			"candidate_id", candidate)
		fmt.Fprintf(cmd.OutOrStdout(), "Applied for %s at %s (application %s, status %s).\n",
			orDash(job.Title), orDash(job.Company), app.ID, app.Status)
		fmt.Fprintln(cmd.OutOrStdout(), `Next: run "talentloop system-check", then "talentloop interview".`)
		return nil
	})
}

// findJob resolves the posting an application was made for. The application
// payload is preferred; the job list is the fallback.
func findJob(ctx context.Context, client *transport.Client, jobID string, app *types.Application) types.Job {
	if app.Job != nil && app.Job.ID != "" {
		return *app.Job
	}
	if jobs, err := client.ListJobs(ctx); err == nil {
		for _, job := range jobs {
			if job.ID == jobID {
				return job
			}
		}
	}
	return types.Job{ID: jobID}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
