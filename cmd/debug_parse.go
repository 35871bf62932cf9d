package cmd

import (
	"context"
	"fmt"
	"time"

	"feedjam/internal/config"
	"feedjam/internal/parser"

	"github.com/spf13/cobra"
)

var debugParseType string

var debugParseCmd = &cobra.Command{
	Use:   "debug-parse <url>",
	Short: "Debug: detect the source type of a URL, parse it and print the items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		timeout, err := config.Duration(cfg.Parsers.Timeout, 30*time.Second)
		if err != nil {
			return err
		}
		reg := parser.NewDefault(parser.Options{
			HTTPClient:    parser.NewHTTPClient(timeout, 0, cfg.Parsers.UserAgent),
			NitterBaseURL: cfg.Parsers.NitterBaseURL,
			V2EXBaseURL:   cfg.Parsers.V2EXBaseURL,
			V2EXToken:     cfg.Parsers.V2EXToken,
		})
		src := reg.NewSource(args[0])
		if debugParseType != "" {
			src.SourceType = debugParseType
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "type: %s\nname: %s\n", src.SourceType, src.Name)

		// Each request is bounded by the client timeout; a whole list may take longer.
		items, err := reg.Parse(context.Background(), src)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "items: %d\n", len(items))
		for _, it := range items {
			fmt.Fprintf(out, "- %s\n  link: %s\n", it.Title, it.Link)
			if it.Points > 0 || it.Views > 0 {
				fmt.Fprintf(out, "  points: %d views: %d\n", it.Points, it.Views)
			}
		}
		return nil
	},
}

func init() {
	debugParseCmd.Flags().StringVar(&debugParseType, "type", "", "force a source type instead of detecting it")
	rootCmd.AddCommand(debugParseCmd)
}
