package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
)

func newReindexCmd(configPath *string) *cobra.Command {
	var gameType string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Backfill ship/player/clan reverse indexes for existing matches",
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

			persister := store.NewPersister(db)

			buckets := []repcore.GameTypeBucket{repcore.GameTypeClan, repcore.GameTypeRanked, repcore.GameTypeRandom, repcore.GameTypeOther}
			if gameType != "" {
				buckets = []repcore.GameTypeBucket{repcore.GameTypeBucketByRaw(gameType)}
			}

			total := 0
			for _, b := range buckets {
				n, err := persister.Reindex(b)
				if err != nil {
					return fmt.Errorf("reindex %s: %w", b.Name, err)
				}
				fmt.Printf("reindexed %d matches in %s\n", n, b.TableName())
				total += n
			}
			fmt.Printf("done: %d matches total\n", total)
			return nil
		},
	}
	cmd.Flags().StringVar(&gameType, "game-type", "", "restrict to one game-type bucket (clan, ranked, random, other); default all")
	return cmd
}
