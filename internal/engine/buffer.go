package engine

import (
	"bufio"
	"fmt"
	"os"
)

// tripleBuffer appends formatted triples to the triples buffer file, one
// per line, so the insert phase can replay them without holding the whole
// converter output in memory
type tripleBuffer struct {
	f *os.File
	w *bufio.Writer
}

func newTripleBuffer(path string) (*tripleBuffer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create triples buffer: %w", err)
	}
	return &tripleBuffer{f: f, w: bufio.NewWriter(f)}, nil
}

func (b *tripleBuffer) write(line string) error {
	if _, err := b.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write triples buffer: %w", err)
	}
	return nil
}

func (b *tripleBuffer) flush() error {
	return b.w.Flush()
}

func (b *tripleBuffer) close() error {
	return b.f.Close()
}

// readTripleBuffer reads the buffered triples back, one per line
func readTripleBuffer(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open triples buffer: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read triples buffer: %w", err)
	}
	return lines, nil
}
