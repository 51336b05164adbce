package cli

import (
	"context"
	"fmt"

	"talentloop/internal/common"
	"talentloop/internal/types"

	"github.com/spf13/cobra"
)

var jobsConfig common.CommandConfig

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse and save job postings",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &jobsConfig)
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			return runAPICommand(cmd, rt, jobsConfig, "jobs.list", rt.client.ListJobs)
		})
	},
}

var jobsSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			return runAPICommand(cmd, rt, jobsConfig, "jobs.saved", rt.client.ListSavedJobs)
		})
	},
}

var jobsSaveCmd = &cobra.Command{
	Use:   "save [job-id]",
	Short: "Save or unsave a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			saved, err := rt.client.ToggleSavedJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "removed from saved jobs"
			if saved {
				state = "saved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s\n", args[0], state)
			return nil
		})
	},
}

var applicationsConfig common.CommandConfig

var applicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List your job applications",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &applicationsConfig)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			return runAPICommand(cmd, rt, applicationsConfig, "applications.list",
				func(ctx context.Context) ([]types.Application, error) {
					return rt.client.ListApplications(ctx)
				})
		})
	},
}

func init() {
	outputFlags(jobsListCmd, &jobsConfig)
	outputFlags(jobsSavedCmd, &jobsConfig)
	jobsCmd.AddCommand(jobsListCmd, jobsSavedCmd, jobsSaveCmd)

	outputFlags(applicationsCmd, &applicationsConfig)
}

// withRuntime builds the command runtime, runs fn and releases it
func withRuntime(cmd *cobra.Command, fn func(rt *env) error) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
