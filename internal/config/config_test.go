package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.SparqlEndpointURI = "http://localhost:7007" },
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "endpoint not a URL",
			mutate: func(c *Config) {
				c.SparqlEndpointURI = "localhost:7007"
			},
			wantErr: true,
		},
		{
			name: "missing converter",
			mutate: func(c *Config) {
				c.SparqlEndpointURI = "http://localhost:7007"
				c.ConverterCommand = ""
			},
			wantErr: true,
		},
		{
			name: "query logging without output path",
			mutate: func(c *Config) {
				c.SparqlEndpointURI = "http://localhost:7007"
				c.WriteSparqlQueriesToFile = true
			},
			wantErr: true,
		},
		{
			name: "max values too small",
			mutate: func(c *Config) {
				c.SparqlEndpointURI = "http://localhost:7007"
				c.MaxValuesPerQuery = 2
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `sparql_endpoint_uri: http://localhost:7007/update
change_file_directory_uri: https://planet.openstreetmap.org/replication/minute
converter_command: /usr/local/bin/osm2rdf
max_values_per_query: 512
http_timeout: 2m
write_sparql_queries_to_file: true
sparql_query_output_path: /tmp/queries.txt
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.SparqlEndpointURI != "http://localhost:7007/update" {
		t.Errorf("SparqlEndpointURI = %q", cfg.SparqlEndpointURI)
	}
	if cfg.ConverterCommand != "/usr/local/bin/osm2rdf" {
		t.Errorf("ConverterCommand = %q", cfg.ConverterCommand)
	}
	if cfg.MaxValuesPerQuery != 512 {
		t.Errorf("MaxValuesPerQuery = %d", cfg.MaxValuesPerQuery)
	}
	if time.Duration(cfg.HTTPTimeout) != 2*time.Minute {
		t.Errorf("HTTPTimeout = %s", time.Duration(cfg.HTTPTimeout))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after load: %v", err)
	}

	// Unset keys keep their defaults
	if cfg.ScratchDir == "" {
		t.Error("ScratchDir default lost")
	}

	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
