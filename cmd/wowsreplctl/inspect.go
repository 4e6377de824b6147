package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
)

func newInspectCmd(configPath *string) *cobra.Command {
	var gameType string

	cmd := &cobra.Command{
		Use:   "inspect [arenaUniqueID]",
		Short: "Print the merged MATCH/STATS/UPLOAD view for one arena id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := store.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			queries := store.NewQueryGateway(db)
			bucket := repcore.GameTypeBucketByRaw(gameType)

			detail, err := queries.MatchDetail(bucket, args[0])
			if err != nil {
				return fmt.Errorf("load match detail: %w", err)
			}

			enc, err := json.MarshalIndent(detail, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(enc))
			return nil
		},
	}
	cmd.Flags().StringVar(&gameType, "game-type", "random", "game-type bucket the match lives in")
	return cmd
}
