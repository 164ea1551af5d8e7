package convert

import (
	"bytes"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sparql-go/internal/logger"
)

// ConverterError is returned when the external OSM to RDF converter exits
// non-zero
type ConverterError struct {
	ExitErr error
	Stderr  string
}

func (e *ConverterError) Error() string {
	return fmt.Sprintf("osm to rdf converter failed: %v: %s", e.ExitErr, e.Stderr)
}

func (e *ConverterError) Unwrap() error {
	return e.ExitErr
}

// Driver invokes the external OSM to RDF converter over the finalized
// scratch documents. The converter is treated as a pure function from OSM
// XML to a bzip2-compressed turtle stream; it must see the nodes document
// before the ways and relations documents.
type Driver struct {
	command string
	args    []string
	build   *BuildDir
}

// NewDriver creates a driver for the given converter command
func NewDriver(command string, args []string, build *BuildDir) *Driver {
	return &Driver{command: command, args: args, build: build}
}

// OutputPath returns the path the converter writes its compressed turtle to
func (d *Driver) OutputPath() string {
	return filepath.Join(d.build.Dir(), "triples.ttl.bz2")
}

// Run finalizes the scratch documents and invokes the converter. It
// returns a reader yielding the decompressed turtle stream; the caller
// closes it.
func (d *Driver) Run(ctx context.Context) (io.ReadCloser, error) {
	log := logger.Get()

	if err := d.build.Finalize(); err != nil {
		return nil, err
	}

	args := append([]string{}, d.args...)
	args = append(args, "--output", d.OutputPath(),
		d.build.NodesPath(), d.build.WaysPath(), d.build.RelationsPath())

	log.Info("Running converter",
		zap.String("command", d.command),
		zap.Strings("args", args))
	start := time.Now()

	cmd := exec.CommandContext(ctx, d.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ConverterError{ExitErr: err, Stderr: tail(stderr.String(), 500)}
	}

	log.Info("Converter finished", zap.Duration("took", time.Since(start)))

	f, err := os.Open(d.OutputPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open converter output: %w", err)
	}
	return &bzip2ReadCloser{r: bzip2.NewReader(f), f: f}, nil
}

// bzip2ReadCloser closes the underlying file when the decompressed stream
// is done
type bzip2ReadCloser struct {
	r io.Reader
	f *os.File
}

func (b *bzip2ReadCloser) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *bzip2ReadCloser) Close() error {
	return b.f.Close()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
