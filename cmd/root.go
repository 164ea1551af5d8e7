package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sparql-go/internal/config"
	"github.com/wegman-software/osm2sparql-go/internal/logger"
)

var (
	cfg        = config.DefaultConfig()
	configFile string

	flagEndpoint        string
	flagOutputDir       string
	flagScratchDir      string
	flagConverter       string
	flagWriteQueries    bool
	flagQueryOutput     string
	flagMaxValues       int
	flagVerbose         bool
	flagLogFile         string
	flagMetricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "osm2sparql-go",
	Short: "Keep a SPARQL endpoint in sync with OpenStreetMap",
	Long: `osm2sparql-go applies OSM change files as incremental updates to a
SPARQL endpoint holding an osm2rdf conversion of an OSM snapshot.

Features:
  - Applies osmChange (OSC) files as batched DELETE/INSERT DATA updates
  - Computes the geometry-update closure over ways and relations
  - Reconstructs partial OSM documents and reruns the osm2rdf converter
  - Follows an OSM replication feed for continuous updates`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := cfg.LoadFile(configFile); err != nil {
				return err
			}
		}

		// Command line flags override config file values
		flags := cmd.Flags()
		if flags.Changed("endpoint") {
			cfg.SparqlEndpointURI = flagEndpoint
		}
		if flags.Changed("output-dir") {
			cfg.OutputDir = flagOutputDir
		}
		if flags.Changed("scratch-dir") {
			cfg.ScratchDir = flagScratchDir
		}
		if flags.Changed("converter") {
			cfg.ConverterCommand = flagConverter
		}
		if flags.Changed("write-queries") {
			cfg.WriteSparqlQueriesToFile = flagWriteQueries
		}
		if flags.Changed("query-output") {
			cfg.SparqlQueryOutputPath = flagQueryOutput
		}
		if flags.Changed("max-values") {
			cfg.MaxValuesPerQuery = flagMaxValues
		}
		if flags.Changed("verbose") {
			cfg.Verbose = flagVerbose
		}
		if flags.Changed("log-file") {
			cfg.LogFile = flagLogFile
		}
		if flags.Changed("metrics-interval") {
			cfg.MetricsInterval = config.Duration(flagMetricsInterval)
		}

		// Initialize logger with optional file output
		if cfg.LogFile != "" {
			logger.InitWithFile(cfg.Verbose, cfg.LogFile)
		} else {
			logger.Init(cfg.Verbose)
		}
		return nil
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagEndpoint, "endpoint", "e", "", "SPARQL endpoint URI")
	rootCmd.PersistentFlags().StringVarP(&flagOutputDir, "output-dir", "o", cfg.OutputDir, "Directory for replication state and cached change files")
	rootCmd.PersistentFlags().StringVar(&flagScratchDir, "scratch-dir", cfg.ScratchDir, "Directory for reconstructed OSM scratch files")
	rootCmd.PersistentFlags().StringVar(&flagConverter, "converter", cfg.ConverterCommand, "OSM to RDF converter command")
	rootCmd.PersistentFlags().BoolVar(&flagWriteQueries, "write-queries", false, "Append every SPARQL query to the query output file")
	rootCmd.PersistentFlags().StringVar(&flagQueryOutput, "query-output", "", "Path for the SPARQL query output file")
	rootCmd.PersistentFlags().IntVar(&flagMaxValues, "max-values", cfg.MaxValuesPerQuery, "Maximum VALUES entries per SPARQL query")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&flagMetricsInterval, "metrics-interval", time.Duration(cfg.MetricsInterval), "Interval for system metrics logging (e.g., 10s, 1m)")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
