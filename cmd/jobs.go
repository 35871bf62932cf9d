package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"feedjam/internal/model"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Enqueue, inspect and process jobs",
}

var (
	jobSubscription uint
	jobUser         string
)

var jobsEnqueueCmd = &cobra.Command{
	Use:   "enqueue <type>",
	Short: "Enqueue a job: fetch-one-subscription, fetch-all-subscriptions, generate-one-user-feed, generate-all-user-feeds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			var subID, userID *uint
			if cmd.Flags().Changed("subscription") {
				subID = &jobSubscription
			}
			if jobUser != "" {
				id, err := a.userByArg(ctx, jobUser)
				if err != nil {
					return err
				}
				userID = &id
			}
			id, err := a.orch.Enqueue(ctx, model.JobType(args[0]), subID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %d pending\n", id)
			return nil
		})
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print a job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			job, err := a.orch.Status(ctx, id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		})
	},
}

var jobsProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one batch of pending jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.orch.ProcessPending(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ran %d jobs\n", n)
			return nil
		})
	},
}

func init() {
	jobsEnqueueCmd.Flags().UintVar(&jobSubscription, "subscription", 0, "subscription id for fetch-one-subscription")
	jobsEnqueueCmd.Flags().StringVar(&jobUser, "user", "", "user id or name for generate-one-user-feed")
	jobsCmd.AddCommand(jobsEnqueueCmd, jobsStatusCmd, jobsProcessCmd)
	rootCmd.AddCommand(jobsCmd)
}
