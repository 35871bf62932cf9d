package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [subscription-id]",
	Short: "Fetch one subscription now, or every due subscription with no argument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if len(args) == 0 {
				n, err := a.orch.FetchAll(ctx)
				if err != nil {
					return err
				}
				ran, err := a.orch.ProcessPending(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d, ran %d jobs\n", n, ran)
				return nil
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.orch.FetchSubscription(ctx, id); err != nil {
				return err
			}
			sub, err := a.subs.Get(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subscription %d: %d items\n", sub.ID, sub.ItemCount)
			return nil
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <user>",
	Short: "Build a new feed generation for a user now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			uf, err := a.service.Generate(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "feed %d: %d items\n", uf.ID, len(uf.Items))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd, generateCmd)
}
