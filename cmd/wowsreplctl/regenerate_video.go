package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/orchestrator"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
	"github.com/wowsreplays/ingest/internal/video"
)

func newRegenerateVideoCmd(configPath *string) *cobra.Command {
	var arenaUniqueID, playerID, gameType string

	cmd := &cobra.Command{
		Use:   "regenerate-video",
		Short: "Re-queue a video render for an existing match (user-initiated retry after RenderFailure)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if arenaUniqueID == "" || playerID == "" {
				return fmt.Errorf("--arena-unique-id and --player-id are required")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := store.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			blobs, err := store.NewBlobStore(cfg.ObjectStoreRoot)
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}

			persister := store.NewPersister(db)
			queries := store.NewQueryGateway(db)
			renderer := video.NewExternalRenderer(cfg.FFmpegPath)
			orch := orchestrator.New(cfg, persister, queries, blobs, renderer)

			bucket := repcore.GameTypeBucketByRaw(gameType)
			detail, err := queries.MatchDetail(bucket, arenaUniqueID)
			if err != nil {
				return fmt.Errorf("load match: %w", err)
			}

			var replayKey string
			for _, u := range detail.Uploads {
				if u.PlayerID == playerID {
					replayKey = u.ObjectKey
				}
			}
			if replayKey == "" {
				return fmt.Errorf("no upload found for player %s under arena %s", playerID, arenaUniqueID)
			}

			meta := video.RenderMeta{
				ArenaUniqueID: arenaUniqueID,
				MapID:         detail.Match.MapID,
				ClientVersion: detail.Match.ClientVersion,
				Allies:        detail.Match.Allies,
				Enemies:       detail.Match.Enemies,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			state, err := orch.RenderVideo(ctx, bucket, arenaUniqueID, replayKey, meta)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			fmt.Printf("final state: %s\n", state)
			return nil
		},
	}

	cmd.Flags().StringVar(&arenaUniqueID, "arena-unique-id", "", "arena id to render")
	cmd.Flags().StringVar(&playerID, "player-id", "", "player id whose uploaded replay to render from")
	cmd.Flags().StringVar(&gameType, "game-type", "random", "game-type bucket the match lives in")
	return cmd
}
