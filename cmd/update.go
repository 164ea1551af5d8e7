package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sparql-go/internal/engine"
)

var updateCmd = &cobra.Command{
	Use:   "update <change-file>",
	Short: "Apply a single OSM change file to the endpoint",
	Long: `Apply a single osmChange file (plain XML or gzip-compressed) to the
SPARQL endpoint.

The engine classifies the change file, computes which unchanged ways and
relations need their geometry recomputed, reconstructs a partial OSM
document with dummy objects fetched from the endpoint, reruns the OSM to
RDF converter over it, and applies the resulting triples as batched
DELETE and INSERT DATA updates.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	if err := cfg.Validate(); err != nil {
		exitWithError("Invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(cfg)
	if err != nil {
		exitWithError("Failed to create engine", err)
	}

	if err := eng.ApplyFile(ctx, args[0]); err != nil {
		exitWithError("Failed to apply change file", err)
	}
}
