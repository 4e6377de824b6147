/*

wowsreplctl is the operator CLI for the replay-ingest pipeline: serving
the HTTP boundary, re-backfilling reverse indexes, re-queuing a video
render, and inspecting a stored match — the supplementary surfaces a
production deployment of this pipeline needs beyond the core ingest path.

*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wowsreplays/ingest/internal/config"
)

const (
	appName    = "wowsreplctl"
	appVersion = "v0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     appName,
		Short:   "Operate the World of Warships replay-ingest pipeline",
		Version: appVersion,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory to search for wowsreplay.yaml")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newReindexCmd(&configPath))
	root.AddCommand(newRegenerateVideoCmd(&configPath))
	root.AddCommand(newInspectCmd(&configPath))
	root.AddCommand(newCompactCmd(&configPath))

	return root
}

func loadConfig(configPath *string) (*config.Config, error) {
	return config.Load(*configPath)
}
