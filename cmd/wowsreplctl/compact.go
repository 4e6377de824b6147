package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
)

func newCompactCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Apply the configured retention policy to stored replay blobs",
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

			queries := store.NewQueryGateway(db)
			compactor := store.NewCompactor(blobs, cfg)

			buckets := []repcore.GameTypeBucket{repcore.GameTypeClan, repcore.GameTypeRanked, repcore.GameTypeRandom, repcore.GameTypeOther}
			total := 0
			for _, b := range buckets {
				uploads, err := queries.Uploads(b)
				if err != nil {
					return fmt.Errorf("list uploads in %s: %w", b.TableName(), err)
				}
				for _, u := range uploads {
					if u.ObjectKey == "" || !blobs.Exists(u.ObjectKey) {
						continue
					}
					if _, err := compactor.Apply(u.ObjectKey, time.Unix(u.UploadedAt, 0)); err != nil {
						fmt.Printf("compact %s: %v\n", u.ObjectKey, err)
						continue
					}
					total++
				}
			}
			fmt.Printf("retention policy applied to %d blobs\n", total)
			return nil
		},
	}
	return cmd
}
