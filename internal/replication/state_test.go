package replication

import (
	"strings"
	"testing"
	"time"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSeq int64
		wantTS  time.Time
		wantErr bool
	}{
		{
			name: "standard OSM state file",
			input: `#Sat Jan 15 12:00:00 UTC 2024
sequenceNumber=12345
timestamp=2024-01-15T12\:00\:00Z`,
			wantSeq: 12345,
			wantTS:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			wantErr: false,
		},
		{
			name: "state with extra whitespace",
			input: `  # comment
  sequenceNumber = 67890
  timestamp = 2024-06-20T08\:30\:00Z  `,
			wantSeq: 67890,
			wantTS:  time.Date(2024, 6, 20, 8, 30, 0, 0, time.UTC),
			wantErr: false,
		},
		{
			name: "unescaped timestamp",
			input: `sequenceNumber=100
timestamp=2024-03-10T15:45:00Z`,
			wantSeq: 100,
			wantTS:  time.Date(2024, 3, 10, 15, 45, 0, 0, time.UTC),
			wantErr: false,
		},
		{
			name:    "invalid sequence number",
			input:   "sequenceNumber=abc\ntimestamp=2024-01-01T00:00:00Z",
			wantErr: true,
		},
		{
			name:    "invalid timestamp",
			input:   "sequenceNumber=100\ntimestamp=invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := ParseState(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if state.SequenceNumber != tt.wantSeq {
				t.Errorf("SequenceNumber = %d, want %d", state.SequenceNumber, tt.wantSeq)
			}
			if !state.Timestamp.Equal(tt.wantTS) {
				t.Errorf("Timestamp = %v, want %v", state.Timestamp, tt.wantTS)
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	state := &State{
		SequenceNumber: 4242,
		Timestamp:      time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC),
	}

	var b strings.Builder
	if err := WriteState(&b, state); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	parsed, err := ParseState(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if parsed.SequenceNumber != state.SequenceNumber {
		t.Errorf("SequenceNumber = %d", parsed.SequenceNumber)
	}
	if !parsed.Timestamp.Equal(state.Timestamp) {
		t.Errorf("Timestamp = %v", parsed.Timestamp)
	}
}

func TestSequenceToPath(t *testing.T) {
	tests := []struct {
		seq  int64
		want string
	}{
		{1, "000/000/001"},
		{999, "000/000/999"},
		{1000, "000/001/000"},
		{1234567, "001/234/567"},
		{6123456, "006/123/456"},
	}

	for _, tt := range tests {
		if got := SequenceToPath(tt.seq); got != tt.want {
			t.Errorf("SequenceToPath(%d) = %s, want %s", tt.seq, got, tt.want)
		}
	}
}

func TestPathToSequence(t *testing.T) {
	tests := []struct {
		path    string
		want    int64
		wantErr bool
	}{
		{"000/000/001", 1, false},
		{"001/234/567", 1234567, false},
		{"001/234/567.osc.gz", 1234567, false},
		{"001/234/567.state.txt", 1234567, false},
		{"invalid", 0, true},
		{"a/b/c", 0, true},
	}

	for _, tt := range tests {
		got, err := PathToSequence(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("PathToSequence(%s): expected error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("PathToSequence(%s): %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PathToSequence(%s) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
