package replication

import (
	"testing"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantName    string
		wantBaseURL string
		wantErr     bool
	}{
		{
			name:        "planet minute",
			input:       "planet-minute",
			wantName:    "planet-minute",
			wantBaseURL: "https://planet.openstreetmap.org/replication/minute",
		},
		{
			name:        "planet minute alternate",
			input:       "minute",
			wantName:    "planet-minute",
			wantBaseURL: "https://planet.openstreetmap.org/replication/minute",
		},
		{
			name:        "planet hour",
			input:       "planet-hour",
			wantName:    "planet-hour",
			wantBaseURL: "https://planet.openstreetmap.org/replication/hour",
		},
		{
			name:        "planet day",
			input:       "day",
			wantName:    "planet-day",
			wantBaseURL: "https://planet.openstreetmap.org/replication/day",
		},
		{
			name:        "custom URL",
			input:       "https://example.com/replication/",
			wantName:    "custom",
			wantBaseURL: "https://example.com/replication",
		},
		{
			name:    "unknown source",
			input:   "nonsense",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := ParseSource(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if source.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", source.Name, tt.wantName)
			}
			if source.BaseURL != tt.wantBaseURL {
				t.Errorf("BaseURL = %s, want %s", source.BaseURL, tt.wantBaseURL)
			}
		})
	}
}

func TestSourceURLs(t *testing.T) {
	source := &Source{BaseURL: "https://example.com/replication"}

	if got := source.StateURL(); got != "https://example.com/replication/state.txt" {
		t.Errorf("StateURL = %s", got)
	}
	if got := source.SequenceStateURL(1234567); got != "https://example.com/replication/001/234/567.state.txt" {
		t.Errorf("SequenceStateURL = %s", got)
	}
	if got := source.SequenceDataURL(1234567); got != "https://example.com/replication/001/234/567.osc.gz" {
		t.Errorf("SequenceDataURL = %s", got)
	}
}
