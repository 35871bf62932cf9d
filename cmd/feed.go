package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"feedjam/internal/digest"
	"feedjam/internal/feed"
	"feedjam/internal/storage"

	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read and act on a user's feed",
}

var feedShowHidden bool

var feedShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Print the active feed generation in ranked order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			entries, err := a.service.ActiveFeed(ctx, userID, feedShowHidden)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tSCORE\tFLAGS\tSOURCE\tTITLE")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%.3f\t%s\t%s\t%s\n", e.FeedItemID, e.RankScore,
					flags(e.Read, e.Liked, e.Disliked, e.Starred, e.Hidden), e.SourceName, e.Title)
			}
			return w.Flush()
		})
	},
}

// flags renders state as a fixed-width marker string, e.g. "r+-*h".
func flags(read, liked, disliked, starred, hidden bool) string {
	marks := []struct {
		on bool
		c  byte
	}{{read, 'r'}, {liked, '+'}, {disliked, '-'}, {starred, '*'}, {hidden, 'h'}}
	b := make([]byte, len(marks))
	for i, m := range marks {
		b[i] = '.'
		if m.on {
			b[i] = m.c
		}
	}
	return string(b)
}

// toggleCmd builds a `feed <verb> <user> <item>` command around one toggle.
func toggleCmd(verb, short string, toggle func(*feed.Service, context.Context, uint, uint) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user> <item-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				userID, err := a.userByArg(ctx, args[0])
				if err != nil {
					return err
				}
				on, err := toggle(a.service, ctx, userID, itemID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d %s=%t\n", itemID, verb, on)
				return nil
			})
		},
	}
}

var feedUnread bool

var feedReadCmd = &cobra.Command{
	Use:   "read <user> <item-id>",
	Short: "Mark an item read (or unread with --unread)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			return a.service.MarkRead(ctx, userID, itemID, !feedUnread)
		})
	},
}

func bulkCmd(use, short string, run func(*feed.Service, context.Context, uint) ([]uint, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				userID, err := a.userByArg(ctx, args[0])
				if err != nil {
					return err
				}
				ids, err := run(a.service, ctx, userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d items updated\n", len(ids))
				return nil
			})
		},
	}
}

var searchQuery storage.SearchQuery

var feedSearchCmd = &cobra.Command{
	Use:   "search <user> [text]",
	Short: "Search items the user has interacted with",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := searchQuery
		if len(args) == 2 {
			q.Text = args[1]
		}
		for name, dst := range map[string]**bool{
			"read": &q.Read, "liked": &q.Liked, "disliked": &q.Disliked, "starred": &q.Starred, "hidden": &q.Hidden,
		} {
			if cmd.Flags().Changed(name) {
				v, err := cmd.Flags().GetBool(name)
				if err != nil {
					return err
				}
				*dst = &v
			}
		}
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			results, err := a.service.Search(ctx, userID, q)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tFLAGS\tSOURCE\tTITLE")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.FeedItemID,
					flags(r.Read, r.Liked, r.Disliked, r.Starred, r.Hidden), r.SourceName, r.Title)
			}
			return w.Flush()
		})
	},
}

var (
	digestTop      int
	digestMarkdown bool
	digestTitle    string
)

var feedDigestCmd = &cobra.Command{
	Use:   "digest <user>",
	Short: "Print the top items of the last 24 hours",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			top, err := a.service.DailyDigest(ctx, userID, digestTop)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if digestMarkdown {
				md, err := digest.Render(digest.FromCandidates(digestTitle, time.Now(), top))
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, md)
				return err
			}
			for i, c := range top {
				writeDigestLine(out, i+1, c.Title, c.SourceName, c.Summary)
			}
			return nil
		})
	},
}

func writeDigestLine(w io.Writer, n int, title, source string, summary *string) {
	fmt.Fprintf(w, "%d. %s (%s)\n", n, title, source)
	if summary != nil && strings.TrimSpace(*summary) != "" {
		fmt.Fprintf(w, "   %s\n", strings.TrimSpace(*summary))
	}
}

func init() {
	feedShowCmd.Flags().BoolVar(&feedShowHidden, "hidden", false, "include hidden items")
	feedReadCmd.Flags().BoolVar(&feedUnread, "unread", false, "mark unread instead")
	for _, name := range []string{"read", "liked", "disliked", "starred", "hidden"} {
		feedSearchCmd.Flags().Bool(name, false, "filter on the "+name+" flag")
	}
	feedSearchCmd.Flags().StringVar(&searchQuery.Source, "source", "", "filter by source name substring")
	feedSearchCmd.Flags().IntVar(&searchQuery.Limit, "limit", 50, "max results")
	feedSearchCmd.Flags().IntVar(&searchQuery.Offset, "offset", 0, "skip results")
	feedDigestCmd.Flags().IntVar(&digestTop, "top", 5, "number of items")
	feedDigestCmd.Flags().BoolVar(&digestMarkdown, "markdown", false, "render as a Markdown document")
	feedDigestCmd.Flags().StringVar(&digestTitle, "title", "Daily digest {.CurrentDate}", "Markdown title; {.CurrentDate} is expanded")

	feedCmd.AddCommand(
		feedShowCmd,
		toggleCmd("like", "Toggle liked", (*feed.Service).ToggleLiked),
		toggleCmd("dislike", "Toggle disliked", (*feed.Service).ToggleDisliked),
		toggleCmd("star", "Toggle starred", (*feed.Service).ToggleStarred),
		toggleCmd("hide", "Toggle hidden", (*feed.Service).ToggleHidden),
		feedReadCmd,
		bulkCmd("read-all", "Mark every unread item of the active feed read", (*feed.Service).MarkAllRead),
		bulkCmd("hide-read", "Hide every read item of the active feed", (*feed.Service).HideRead),
		feedSearchCmd,
		feedDigestCmd,
	)
	rootCmd.AddCommand(feedCmd)
}
