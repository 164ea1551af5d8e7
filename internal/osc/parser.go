package osc

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

// Parser parses OSC (OSM Change) files into typed changes
type Parser struct {
	stats Stats
}

// NewParser creates a new OSC parser
func NewParser() *Parser {
	return &Parser{}
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParseFile parses an OSC file and streams changes to a channel.
// Supports both plain XML and gzip-compressed files.
func (p *Parser) ParseFile(ctx context.Context, filename string) (<-chan Change, <-chan error) {
	changes := make(chan Change, 1000)
	errChan := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errChan)

		f, err := os.Open(filename)
		if err != nil {
			errChan <- fmt.Errorf("failed to open OSC file: %w", err)
			return
		}
		defer f.Close()

		var reader io.Reader = f

		// Check if gzip compressed
		if strings.HasSuffix(filename, ".gz") {
			gzReader, err := gzip.NewReader(f)
			if err != nil {
				errChan <- fmt.Errorf("failed to create gzip reader: %w", err)
				return
			}
			defer gzReader.Close()
			reader = gzReader
		}

		if err := p.parse(ctx, reader, changes); err != nil {
			errChan <- err
		}
	}()

	return changes, errChan
}

// ParseReader parses OSC data from a reader
func (p *Parser) ParseReader(ctx context.Context, reader io.Reader) (<-chan Change, <-chan error) {
	changes := make(chan Change, 1000)
	errChan := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errChan)

		if err := p.parse(ctx, reader, changes); err != nil {
			errChan <- err
		}
	}()

	return changes, errChan
}

// parse performs the actual XML parsing
func (p *Parser) parse(ctx context.Context, reader io.Reader, changes chan<- Change) error {
	decoder := xml.NewDecoder(reader)
	var currentAction Action

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("XML parse error: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "create":
			currentAction = ActionCreate
		case "modify":
			currentAction = ActionModify
		case "delete":
			currentAction = ActionDelete
		case "node", "way", "relation":
			if currentAction == "" {
				return fmt.Errorf("element <%s> outside of a change section", se.Name.Local)
			}
			change, err := p.parseElement(decoder, se, currentAction)
			if err != nil {
				return err
			}
			select {
			case changes <- change:
				p.updateStats(change.Action, change.Kind)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// parseElement parses one node, way or relation element into a typed change
func (p *Parser) parseElement(decoder *xml.Decoder, start xml.StartElement, action Action) (Change, error) {
	kind, _ := osm.ParseKind(start.Name.Local)
	change := Change{Action: action, Kind: kind}

	id, err := attrID(start, "id")
	if err != nil {
		return change, fmt.Errorf("<%s> element: %w", start.Name.Local, err)
	}

	switch kind {
	case osm.KindNode:
		node := osm.NewNode(id, attr(start, "lat"), attr(start, "lon"))
		node.SetTimestamp(attr(start, "timestamp"))
		change.Node = node
	case osm.KindWay:
		way := osm.NewWay(id)
		way.SetTimestamp(attr(start, "timestamp"))
		change.Way = way
	case osm.KindRelation:
		rel := osm.NewRelation(id)
		rel.SetTimestamp(attr(start, "timestamp"))
		change.Relation = rel
	}

	// For delete actions only the id matters; skip the children
	if action == ActionDelete {
		if err := skipElement(decoder, start.Name.Local); err != nil {
			return change, err
		}
		return change, nil
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return change, fmt.Errorf("XML parse error inside <%s>: %w", start.Name.Local, err)
		}

		switch se := token.(type) {
		case xml.StartElement:
			if err := p.parseChild(decoder, se, &change); err != nil {
				return change, err
			}
		case xml.EndElement:
			if se.Name.Local == start.Name.Local {
				return change, nil
			}
		}
	}
}

// parseChild handles one child element (tag, nd or member) of a change element
func (p *Parser) parseChild(decoder *xml.Decoder, se xml.StartElement, change *Change) error {
	switch se.Name.Local {
	case "tag":
		k, v := attr(se, "k"), attr(se, "v")
		if k == "" {
			break
		}
		switch change.Kind {
		case osm.KindNode:
			change.Node.AddTag(k, v)
		case osm.KindWay:
			change.Way.AddTag(k, v)
		case osm.KindRelation:
			change.Relation.AddTag(k, v)
		}
	case "nd":
		ref, err := attrID(se, "ref")
		if err != nil {
			return fmt.Errorf("<nd> element: %w", err)
		}
		switch change.Kind {
		case osm.KindWay:
			change.Way.AddNode(ref)
		case osm.KindRelation:
			// Legacy shape: <nd> children inside relations are node references
			change.Relation.AddNodeRef(ref)
		}
	case "member":
		if change.Kind != osm.KindRelation {
			break
		}
		memberKind, ok := osm.ParseKind(attr(se, "type"))
		if !ok {
			return fmt.Errorf("<member> element with unknown type %q", attr(se, "type"))
		}
		ref, err := attrID(se, "ref")
		if err != nil {
			return fmt.Errorf("<member> element: %w", err)
		}
		change.Relation.AddMember(osm.Member{
			Kind: memberKind,
			Ref:  ref,
			Role: attr(se, "role"),
		})
	}
	return skipElement(decoder, se.Name.Local)
}

// skipElement consumes tokens until the matching end element
func skipElement(decoder *xml.Decoder, name string) error {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("XML parse error inside <%s>: %w", name, err)
		}
		switch token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func attrID(se xml.StartElement, name string) (int64, error) {
	v := attr(se, name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s attribute %q: %w", name, v, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s attribute %q: must be positive", name, v)
	}
	return id, nil
}

// updateStats updates parsing statistics
func (p *Parser) updateStats(action Action, kind osm.Kind) {
	switch kind {
	case osm.KindNode:
		switch action {
		case ActionCreate:
			p.stats.NodesCreated++
		case ActionModify:
			p.stats.NodesModified++
		case ActionDelete:
			p.stats.NodesDeleted++
		}
	case osm.KindWay:
		switch action {
		case ActionCreate:
			p.stats.WaysCreated++
		case ActionModify:
			p.stats.WaysModified++
		case ActionDelete:
			p.stats.WaysDeleted++
		}
	case osm.KindRelation:
		switch action {
		case ActionCreate:
			p.stats.RelationsCreated++
		case ActionModify:
			p.stats.RelationsModified++
		case ActionDelete:
			p.stats.RelationsDeleted++
		}
	}
}
