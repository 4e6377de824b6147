package main

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/orchestrator"
	"github.com/wowsreplays/ingest/internal/store"
	"github.com/wowsreplays/ingest/internal/video"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload/search/video HTTP boundary",
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

			blobs, err := store.NewBlobStore(cfg.ObjectStoreRoot)
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}

			persister := store.NewPersister(db)
			queries := store.NewQueryGateway(db)
			renderer := video.NewExternalRenderer(cfg.FFmpegPath)

			orch := orchestrator.New(cfg, persister, queries, blobs, renderer)

			e := echo.New()
			e.HideBanner = true
			orch.RegisterRoutes(e)

			return e.Start(cfg.HTTPAddr)
		},
	}
}
