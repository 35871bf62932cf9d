package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"feedjam/internal/model"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// subscribe registers the source behind rawURL and subscribes the user.
func (a *app) subscribe(ctx context.Context, userID uint, rawURL string) (model.Subscription, model.Source, error) {
	src, err := a.sources.GetOrCreate(ctx, a.registry.NewSource(rawURL))
	if err != nil {
		return model.Subscription{}, model.Source{}, err
	}
	sub, err := a.subs.Subscribe(ctx, userID, src.ID)
	if err != nil {
		return model.Subscription{}, model.Source{}, err
	}
	return sub, src, nil
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <user> <url>",
	Short: "Subscribe a user to a source and build the feed right away",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			sub, src, err := a.subscribe(ctx, userID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subscription %d: %s (%s)\n", sub.ID, src.Name, src.SourceType)

			fetchID, err := a.orch.Enqueue(ctx, model.JobFetchSubscription, &sub.ID, nil)
			if err != nil {
				return err
			}
			genID, err := a.orch.Enqueue(ctx, model.JobGenerateUserFeed, nil, &userID)
			if err != nil {
				return err
			}
			return a.orch.RunNow(ctx, fetchID, genID)
		})
	},
}

// importFile is the YAML layout accepted by `feedjam import`.
type importFile struct {
	Subscriptions []struct {
		URL    string `yaml:"url"`
		Active *bool  `yaml:"active"`
	} `yaml:"subscriptions"`
	Interests []struct {
		Topic  string  `yaml:"topic"`
		Weight float64 `yaml:"weight"`
	} `yaml:"interests"`
}

func readImportFile(r io.Reader) (importFile, error) {
	var f importFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return importFile{}, fmt.Errorf("decode import file: %w", err)
	}
	for i, s := range f.Subscriptions {
		if strings.TrimSpace(s.URL) == "" {
			return importFile{}, fmt.Errorf("subscriptions[%d]: url is required", i)
		}
	}
	return f, nil
}

func (f importFile) interests() []model.UserInterest {
	out := make([]model.UserInterest, 0, len(f.Interests))
	for _, in := range f.Interests {
		out = append(out, model.UserInterest{Topic: in.Topic, Weight: in.Weight})
	}
	return out
}

var importNow bool

var importCmd = &cobra.Command{
	Use:   "import <user> <file.yaml>",
	Short: "Import subscriptions and interests for a user from YAML",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fh, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer fh.Close()
		f, err := readImportFile(fh)
		if err != nil {
			return err
		}

		return withApp(func(ctx context.Context, a *app) error {
			userID, err := a.userByArg(ctx, args[0])
			if err != nil {
				return err
			}
			if len(f.Interests) > 0 {
				if err := a.interest.Replace(ctx, userID, f.interests()); err != nil {
					return err
				}
			}

			var jobIDs []uint
			for _, s := range f.Subscriptions {
				sub, src, err := a.subscribe(ctx, userID, s.URL)
				if err != nil {
					return err
				}
				if s.Active != nil && !*s.Active {
					if err := a.subs.SetActive(ctx, sub.ID, false); err != nil {
						return err
					}
					continue
				}
				id, err := a.orch.Enqueue(ctx, model.JobFetchSubscription, &sub.ID, nil)
				if err != nil {
					return err
				}
				jobIDs = append(jobIDs, id)
				slog.Info("import: subscribed", "user", userID, "source", src.Name, "type", src.SourceType)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d subscriptions, %d interests\n", len(f.Subscriptions), len(f.Interests))
			if !importNow {
				return nil
			}
			genID, err := a.orch.Enqueue(ctx, model.JobGenerateUserFeed, nil, &userID)
			if err != nil {
				return err
			}
			return a.orch.RunNow(ctx, append(jobIDs, genID)...)
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importNow, "now", false, "fetch the imported subscriptions and generate the feed immediately")
	rootCmd.AddCommand(subscribeCmd, importCmd)
}
