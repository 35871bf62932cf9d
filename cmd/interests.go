package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"feedjam/internal/model"

	"github.com/spf13/cobra"
)

var interestsCmd = &cobra.Command{
	Use:   "interests",
	Short: "Manage a user's weighted topics",
}

// parseInterests reads topic=weight pairs; a bare topic gets weight 1.
func parseInterests(args []string) ([]model.UserInterest, error) {
	out := make([]model.UserInterest, 0, len(args))
	for _, arg := range args {
		topic, weight, found := strings.Cut(arg, "=")
		w := 1.0
		if found {
			var err error
			if w, err = strconv.ParseFloat(weight, 64); err != nil {
				return nil, fmt.Errorf("interest %q: bad weight: %w", arg, err)
			}
		}
		out = append(out, model.UserInterest{Topic: topic, Weight: w})
	}
	return out, nil
}

var interestsSetCmd = &cobra.Command{
	Use:   "set <user> [topic=weight ...]",
	Short: "Replace the user's interests; no topics clears them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interests, err := parseInterests(args[1:])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.interest.Replace(ctx, userID, interests); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d interests saved\n", len(interests))
			return nil
		})
	},
}

var interestsListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List the user's interests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			list, err := a.interest.List(ctx, userID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tWEIGHT")
			for _, in := range list {
				fmt.Fprintf(w, "%s\t%.2f\n", in.Topic, in.Weight)
			}
			return w.Flush()
		})
	},
}

func init() {
	interestsCmd.AddCommand(interestsSetCmd, interestsListCmd)
	rootCmd.AddCommand(interestsCmd)
}
