package fetch

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
	"github.com/wegman-software/osm2sparql-go/internal/sparql"
)

// resultsDoc mirrors the application/sparql-results+xml shape:
// /sparql/results/result/binding
type resultsDoc struct {
	XMLName xml.Name    `xml:"sparql"`
	Results []resultRow `xml:"results>result"`
}

type resultRow struct {
	Bindings []binding `xml:"binding"`
}

type binding struct {
	Name    string `xml:"name,attr"`
	URI     string `xml:"uri"`
	Literal string `xml:"literal"`
}

// value returns the bound term for a binding name, IRI or literal
func (r resultRow) value(name string) (string, bool) {
	for _, b := range r.Bindings {
		if b.Name != name {
			continue
		}
		if b.URI != "" {
			return b.URI, true
		}
		return b.Literal, true
	}
	return "", false
}

func decodeResults(body []byte) (*resultsDoc, error) {
	var doc resultsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedResponseError{Detail: err.Error()}
	}
	return &doc, nil
}

// require returns the bound term for name or a MalformedResponseError
// naming the query that produced the row
func (r resultRow) require(name, query string) (string, error) {
	v, ok := r.value(name)
	if !ok {
		return "", &MalformedResponseError{Binding: name, Detail: queryPrefix(query)}
	}
	return v, nil
}

func queryPrefix(q string) string {
	if len(q) > 60 {
		return q[:60] + "..."
	}
	return q
}

// idFromIRI strips the namespace head from an IRI, in full or prefixed
// form, and parses the trailing integer
func idFromIRI(value, fullIRI, prefixed string) (int64, error) {
	var rest string
	switch {
	case strings.HasPrefix(value, fullIRI):
		rest = value[len(fullIRI):]
	case strings.HasPrefix(value, prefixed):
		rest = value[len(prefixed):]
	default:
		return 0, &BadIdentifierError{Value: value}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, &BadIdentifierError{Value: value}
	}
	return id, nil
}

func nodeID(value string) (int64, error) {
	return idFromIRI(value, sparql.IRINode, "osmnode:")
}

func wayID(value string) (int64, error) {
	return idFromIRI(value, sparql.IRIWay, "osmway:")
}

func relationID(value string) (int64, error) {
	return idFromIRI(value, sparql.IRIRelation, "osmrel:")
}

func geomNodeID(value string) (int64, error) {
	return idFromIRI(value, sparql.IRIGeom+"osm_node_", "osm2rdfgeom:osm_node_")
}

// memberID classifies a relation member IRI by namespace and extracts its id
func memberID(value string) (osm.Kind, int64, error) {
	if id, err := nodeID(value); err == nil {
		return osm.KindNode, id, nil
	}
	if id, err := wayID(value); err == nil {
		return osm.KindWay, id, nil
	}
	if id, err := relationID(value); err == nil {
		return osm.KindRelation, id, nil
	}
	return 0, 0, &BadIdentifierError{Value: value}
}
