package convert

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

const (
	osmHeader = `<osm version="0.6">`
	osmFooter = `</osm>`
)

// BuildDir is the scoped scratch directory owned by one engine run. It
// holds the three reconstructed OSM documents the converter reads plus a
// buffer file for the filtered triples. The files are truncated at engine
// start; on a fatal error they are left on disk for post-mortem.
type BuildDir struct {
	dir       string
	nodes     *kindFile
	ways      *kindFile
	relations *kindFile
	finalized bool
}

type kindFile struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewBuildDir creates the scratch directory and opens the three OSM
// documents with their headers written
func NewBuildDir(dir string) (*BuildDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	b := &BuildDir{dir: dir}
	for _, kf := range []struct {
		name string
		dst  **kindFile
	}{
		{"nodes.osm", &b.nodes},
		{"ways.osm", &b.ways},
		{"relations.osm", &b.relations},
	} {
		path := filepath.Join(dir, kf.name)
		f, err := os.Create(path)
		if err != nil {
			b.closeAll()
			return nil, fmt.Errorf("failed to create scratch file %s: %w", path, err)
		}
		w := bufio.NewWriter(f)
		if _, err := w.WriteString(osmHeader + "\n"); err != nil {
			b.closeAll()
			return nil, fmt.Errorf("failed to write scratch file %s: %w", path, err)
		}
		*kf.dst = &kindFile{path: path, f: f, w: w}
	}
	return b, nil
}

// Dir returns the scratch directory path
func (b *BuildDir) Dir() string {
	return b.dir
}

// TriplesPath returns the path of the filtered-triples buffer file
func (b *BuildDir) TriplesPath() string {
	return filepath.Join(b.dir, "triples.txt")
}

// NodesPath returns the path of the reconstructed nodes document
func (b *BuildDir) NodesPath() string { return b.nodes.path }

// WaysPath returns the path of the reconstructed ways document
func (b *BuildDir) WaysPath() string { return b.ways.path }

// RelationsPath returns the path of the reconstructed relations document
func (b *BuildDir) RelationsPath() string { return b.relations.path }

// AppendXML appends one serialized OSM element to the document of its kind
func (b *BuildDir) AppendXML(kind osm.Kind, xml string) error {
	if b.finalized {
		return fmt.Errorf("scratch files already finalized")
	}
	var kf *kindFile
	switch kind {
	case osm.KindNode:
		kf = b.nodes
	case osm.KindWay:
		kf = b.ways
	case osm.KindRelation:
		kf = b.relations
	}
	if _, err := kf.w.WriteString(xml + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", kf.path, err)
	}
	return nil
}

// Finalize closes the three OSM wrappers and flushes the files. After
// Finalize the documents are ready for the converter.
func (b *BuildDir) Finalize() error {
	if b.finalized {
		return nil
	}
	b.finalized = true
	for _, kf := range []*kindFile{b.nodes, b.ways, b.relations} {
		if _, err := kf.w.WriteString(osmFooter + "\n"); err != nil {
			return fmt.Errorf("failed to finalize %s: %w", kf.path, err)
		}
		if err := kf.w.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s: %w", kf.path, err)
		}
		if err := kf.f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", kf.path, err)
		}
	}
	return nil
}

// Release removes the scratch directory. Called only on success; failed
// runs keep the files on disk.
func (b *BuildDir) Release() error {
	b.closeAll()
	return os.RemoveAll(b.dir)
}

func (b *BuildDir) closeAll() {
	for _, kf := range []*kindFile{b.nodes, b.ways, b.relations} {
		if kf != nil && kf.f != nil {
			kf.f.Close()
		}
	}
}
