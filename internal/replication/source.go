package replication

import (
	"fmt"
	"strings"
	"time"
)

// Source represents a replication data source: a directory of
// sequence-numbered change files plus state files
type Source struct {
	Name           string
	BaseURL        string        // Base URL for replication files
	UpdateInterval time.Duration // Expected update interval
	Description    string
}

// StateURL returns the URL for the current state file
func (s *Source) StateURL() string {
	return s.BaseURL + "/state.txt"
}

// SequenceStateURL returns the URL for a specific sequence's state file
func (s *Source) SequenceStateURL(seq int64) string {
	path := SequenceToPath(seq)
	return fmt.Sprintf("%s/%s.state.txt", s.BaseURL, path)
}

// SequenceDataURL returns the URL for a specific sequence's OSC file
func (s *Source) SequenceDataURL(seq int64) string {
	path := SequenceToPath(seq)
	return fmt.Sprintf("%s/%s.osc.gz", s.BaseURL, path)
}

// Predefined replication sources
var (
	// Planet OSM - minutely updates
	SourcePlanetMinute = &Source{
		Name:           "planet-minute",
		BaseURL:        "https://planet.openstreetmap.org/replication/minute",
		UpdateInterval: 1 * time.Minute,
		Description:    "OpenStreetMap planet minutely updates",
	}

	// Planet OSM - hourly updates
	SourcePlanetHour = &Source{
		Name:           "planet-hour",
		BaseURL:        "https://planet.openstreetmap.org/replication/hour",
		UpdateInterval: 1 * time.Hour,
		Description:    "OpenStreetMap planet hourly updates",
	}

	// Planet OSM - daily updates
	SourcePlanetDay = &Source{
		Name:           "planet-day",
		BaseURL:        "https://planet.openstreetmap.org/replication/day",
		UpdateInterval: 24 * time.Hour,
		Description:    "OpenStreetMap planet daily updates",
	}
)

// ParseSource parses a source string and returns a Source
// Formats:
//   - "planet-minute", "planet-hour", "planet-day"
//   - Custom URL: "https://example.com/replication"
func ParseSource(s string) (*Source, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "planet-minute", "planet/minute", "minute":
		return SourcePlanetMinute, nil
	case "planet-hour", "planet/hour", "hour":
		return SourcePlanetHour, nil
	case "planet-day", "planet/day", "day":
		return SourcePlanetDay, nil
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return &Source{
			Name:           "custom",
			BaseURL:        strings.TrimSuffix(s, "/"),
			UpdateInterval: 1 * time.Minute,
			Description:    "Custom replication source",
		}, nil
	}

	return nil, fmt.Errorf("unknown replication source: %s", s)
}

// ListSources returns a list of all predefined sources
func ListSources() []string {
	return []string{
		"planet-minute - OpenStreetMap planet minutely updates",
		"planet-hour   - OpenStreetMap planet hourly updates",
		"planet-day    - OpenStreetMap planet daily updates",
		"",
		"Any change file directory URL can be used directly:",
		"  https://example.com/replication/minute",
	}
}
