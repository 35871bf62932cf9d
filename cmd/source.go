package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"feedjam/internal/parser"

	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Inspect and adjust sources",
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			srcs, err := a.sources.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tACTIVE\tURL")
			for _, s := range srcs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", s.ID, s.Name, s.SourceType, s.IsActive, s.ResourceURL)
			}
			return w.Flush()
		})
	},
}

var sourceSetTypeCmd = &cobra.Command{
	Use:   "set-type <source-id> <type>",
	Short: "Change the parser type of a source that has no items yet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := checkSourceType(a.registry, args[1]); err != nil {
				return err
			}
			if err := a.sources.UpdateType(ctx, id, args[1]); err != nil {
				return fmt.Errorf("source %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "source %d type %s\n", id, args[1])
			return nil
		})
	},
}

// checkSourceType accepts only types the registry can parse.
func checkSourceType(reg *parser.Registry, sourceType string) error {
	if _, ok := reg.Lookup(sourceType); !ok {
		return fmt.Errorf("%w: %q (known: %s)", parser.ErrNoParser, sourceType, strings.Join(reg.Types(), ", "))
	}
	return nil
}

func init() {
	sourceCmd.AddCommand(sourceListCmd, sourceSetTypeCmd)
	rootCmd.AddCommand(sourceCmd)
}
