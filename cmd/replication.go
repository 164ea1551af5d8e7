package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sparql-go/internal/engine"
	"github.com/wegman-software/osm2sparql-go/internal/logger"
	"github.com/wegman-software/osm2sparql-go/internal/metrics"
	"github.com/wegman-software/osm2sparql-go/internal/replication"
)

var (
	replicationSource   string
	replicationInterval time.Duration
	maxUpdates          int
	catchUp             bool
	fromEndpoint        bool
)

var replicationCmd = &cobra.Command{
	Use:   "replication",
	Short: "Manage OSM replication for incremental updates",
	Long: `Manage OSM replication to keep the SPARQL endpoint in sync with
OpenStreetMap.

Replication sources include:
  - planet-minute, planet-hour, planet-day (OpenStreetMap planet)
  - Custom URL (https://your-server/replication/minute)

Examples:
  # Initialize replication at the sequence matching the endpoint contents
  osm2sparql-go replication init --from-endpoint

  # Check replication status
  osm2sparql-go replication status

  # Apply all pending updates
  osm2sparql-go replication update --catch-up

  # Start continuous replication
  osm2sparql-go replication start --interval 1m`,
}

var replicationInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize replication from a source",
	Long: `Initialize replication by downloading the current state from the source.

With --from-endpoint the start sequence is derived from the endpoint
instead: the latest node timestamp in the store is queried and the state
files are walked backwards until the matching sequence is found, so no
change between the bulk load and now is skipped.`,
	Run: runReplicationInit,
}

var replicationStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current replication status",
	Run:   runReplicationStatus,
}

var replicationUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply the next replication update",
	Long: `Fetch the next pending change file and apply it to the endpoint.

Use --catch-up to apply all pending updates until caught up.`,
	Run: runReplicationUpdate,
}

var replicationStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start continuous replication",
	Long: `Start a continuous replication loop that checks for new change files
periodically, applies them to the endpoint, and continues until
interrupted (Ctrl+C).

Use --interval to control how often to check for updates.
Use --max-updates to limit the number of updates to apply (0 = unlimited).`,
	Run: runReplicationStart,
}

var replicationListCmd = &cobra.Command{
	Use:   "list-sources",
	Short: "List available replication sources",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available replication sources:")
		fmt.Println()
		for _, source := range replication.ListSources() {
			fmt.Println(source)
		}
	},
}

func init() {
	rootCmd.AddCommand(replicationCmd)

	replicationCmd.AddCommand(replicationInitCmd)
	replicationCmd.AddCommand(replicationStatusCmd)
	replicationCmd.AddCommand(replicationUpdateCmd)
	replicationCmd.AddCommand(replicationStartCmd)
	replicationCmd.AddCommand(replicationListCmd)

	replicationCmd.PersistentFlags().StringVarP(&replicationSource, "source", "s", "", "Replication source (overrides change file directory URI)")

	replicationInitCmd.Flags().BoolVar(&fromEndpoint, "from-endpoint", false, "Derive the start sequence from the endpoint's latest node timestamp")
	replicationUpdateCmd.Flags().BoolVar(&catchUp, "catch-up", false, "Apply all pending updates")
	replicationStartCmd.Flags().DurationVarP(&replicationInterval, "interval", "i", time.Minute, "Interval between update checks")
	replicationStartCmd.Flags().IntVar(&maxUpdates, "max-updates", 0, "Maximum number of updates to apply (0 = unlimited)")
}

// newReplicator resolves the source and creates a replicator for it
func newReplicator() (*replication.Replicator, error) {
	sourceSpec := replicationSource
	if sourceSpec == "" {
		sourceSpec = cfg.ChangeFileDirectoryURI
	}
	if sourceSpec == "" {
		return nil, fmt.Errorf("no replication source: set --source or change_file_directory_uri")
	}

	source, err := replication.ParseSource(sourceSpec)
	if err != nil {
		return nil, err
	}
	return replication.NewReplicator(cfg, source)
}

func runReplicationInit(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repl, err := newReplicator()
	if err != nil {
		exitWithError("Failed to create replicator", err)
	}

	if fromEndpoint {
		if err := cfg.Validate(); err != nil {
			exitWithError("Invalid configuration", err)
		}
		eng, err := engine.New(cfg)
		if err != nil {
			exitWithError("Failed to create engine", err)
		}
		ts, err := eng.Fetcher().LatestNodeTimestamp(ctx)
		if err != nil {
			exitWithError("Failed to fetch latest node timestamp", err)
		}
		if err := repl.InitFromTimestamp(ctx, ts); err != nil {
			exitWithError("Failed to initialize replication", err)
		}
		return
	}

	if err := repl.Init(ctx); err != nil {
		exitWithError("Failed to initialize replication", err)
	}
}

func runReplicationStatus(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repl, err := newReplicator()
	if err != nil {
		exitWithError("Failed to create replicator", err)
	}

	status, err := repl.GetStatus(ctx)
	if err != nil {
		exitWithError("Failed to get replication status", err)
	}
	fmt.Print(status.String())
}

func runReplicationUpdate(cmd *cobra.Command, args []string) {
	if err := cfg.Validate(); err != nil {
		exitWithError("Invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repl, err := newReplicator()
	if err != nil {
		exitWithError("Failed to create replicator", err)
	}
	if err := repl.LoadState(); err != nil {
		exitWithError("Failed to load replication state", err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		exitWithError("Failed to create engine", err)
	}

	applied, err := applyPending(ctx, repl, eng, catchUp, 0)
	if err != nil {
		exitWithError("Failed to apply updates", err)
	}
	if applied == 0 {
		logger.Get().Info("No updates available")
	}
}

func runReplicationStart(cmd *cobra.Command, args []string) {
	if err := cfg.Validate(); err != nil {
		exitWithError("Invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()

	repl, err := newReplicator()
	if err != nil {
		exitWithError("Failed to create replicator", err)
	}
	if err := repl.LoadState(); err != nil {
		exitWithError("Failed to load replication state", err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		exitWithError("Failed to create engine", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	collector := metrics.NewCollector(time.Duration(cfg.MetricsInterval), log)
	g.Go(func() error {
		collector.Start(gctx)
		return nil
	})

	g.Go(func() error {
		defer stop()
		total := 0
		ticker := time.NewTicker(replicationInterval)
		defer ticker.Stop()

		for {
			applied, err := applyPending(gctx, repl, eng, true, maxUpdates-total)
			if err != nil {
				return err
			}
			total += applied
			if maxUpdates > 0 && total >= maxUpdates {
				log.Info("Reached maximum number of updates", zap.Int("applied", total))
				return nil
			}

			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		exitWithError("Replication loop failed", err)
	}
	log.Info("Replication stopped")
}

// applyPending applies the next pending update, or all of them when
// catchUp is set. A limit above zero caps the number applied.
func applyPending(ctx context.Context, repl *replication.Replicator, eng *engine.Engine, catchUp bool, limit int) (int, error) {
	log := logger.Get()
	applied := 0

	for {
		if ctx.Err() != nil {
			return applied, nil
		}

		oscPath, nextState, err := repl.FetchNextUpdate(ctx)
		if err != nil {
			return applied, err
		}
		if oscPath == "" {
			return applied, nil
		}

		log.Info("Applying update",
			zap.Int64("sequence", nextState.SequenceNumber),
			zap.Time("timestamp", nextState.Timestamp))

		if err := eng.ApplyFile(ctx, oscPath); err != nil {
			return applied, fmt.Errorf("sequence %d: %w", nextState.SequenceNumber, err)
		}
		if err := repl.UpdateState(nextState); err != nil {
			return applied, err
		}
		applied++

		if !catchUp {
			return applied, nil
		}
		if limit > 0 && applied >= limit {
			return applied, nil
		}
	}
}
