package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "2m" parse
type Duration time.Duration

// UnmarshalYAML parses a duration string or a plain nanosecond count
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Config holds the global configuration for the update process
type Config struct {
	// SPARQL endpoint settings
	SparqlEndpointURI        string   `yaml:"sparql_endpoint_uri"`
	WriteSparqlQueriesToFile bool     `yaml:"write_sparql_queries_to_file"`
	SparqlQueryOutputPath    string   `yaml:"sparql_query_output_path"`
	HTTPTimeout              Duration `yaml:"http_timeout"`

	// Replication settings
	ChangeFileDirectoryURI string `yaml:"change_file_directory_uri"`

	// Converter settings
	ConverterCommand string   `yaml:"converter_command"`
	ConverterArgs    []string `yaml:"converter_args"`

	// Processing settings
	ScratchDir        string `yaml:"scratch_dir"`
	MaxValuesPerQuery int    `yaml:"max_values_per_query"`

	// Output settings (replication state and change file cache)
	OutputDir string `yaml:"output_dir"`

	// Logging and metrics
	Verbose         bool     `yaml:"verbose"`
	LogFile         string   `yaml:"log_file"`
	MetricsInterval Duration `yaml:"metrics_interval"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout:       Duration(60 * time.Second),
		ConverterCommand:  "osm2rdf",
		ScratchDir:        filepath.Join(os.TempDir(), "osm2sparql"),
		MaxValuesPerQuery: 1024,
		OutputDir:         "./osm2sparql_data",
		Verbose:           false,
		LogFile:           "",
		MetricsInterval:   Duration(30 * time.Second),
	}
}

// LoadFile merges settings from a YAML config file into the config.
// Callers apply the file before binding flags, so command line flags
// override file values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.SparqlEndpointURI == "" {
		return fmt.Errorf("sparql endpoint URI is required")
	}
	if !strings.HasPrefix(c.SparqlEndpointURI, "http://") &&
		!strings.HasPrefix(c.SparqlEndpointURI, "https://") {
		return fmt.Errorf("sparql endpoint URI must be an http(s) URL: %s", c.SparqlEndpointURI)
	}
	if c.ConverterCommand == "" {
		return fmt.Errorf("converter command is required")
	}
	if c.MaxValuesPerQuery < 4 {
		return fmt.Errorf("max values per query must be at least 4")
	}
	if c.WriteSparqlQueriesToFile && c.SparqlQueryOutputPath == "" {
		return fmt.Errorf("sparql query output path is required when query logging is enabled")
	}
	return nil
}
