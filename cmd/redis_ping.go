package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedjam/internal/redisclient"
	"feedjam/internal/storage"

	"github.com/spf13/cobra"
)

// pingCmd checks the enrichment cache's Redis server.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and print PONG",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		if rdb == nil {
			return errors.New("redis.addr is not configured")
		}
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := storage.NewRedisCache(rdb).Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PONG")
		return nil
	},
}

func init() {
	redisCmd.AddCommand(pingCmd)
}
