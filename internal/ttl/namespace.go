package ttl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

// Namespace classifies the subject of a converter triple
type Namespace int

const (
	NamespaceOther Namespace = iota
	NamespaceNode
	NamespaceWay
	NamespaceRelation
	NamespaceGeomNode
	NamespaceWayArea
	NamespaceRelArea
)

// Prefixed-name heads emitted by the converter
const (
	prefixNode     = "osmnode:"
	prefixWay      = "osmway:"
	prefixRelation = "osmrel:"
	prefixGeomNode = "osm2rdfgeom:osm_node_"
	prefixWayArea  = "osm2rdfgeom:osm_wayarea_"
	prefixRelArea  = "osm2rdfgeom:osm_relarea_"
)

// SubjectNamespace determines which namespace a subject belongs to.
// The geometry prefixes share no head with the plain node, way and
// relation prefixes, so the order of the checks does not matter.
func SubjectNamespace(s string) Namespace {
	switch {
	case strings.HasPrefix(s, prefixNode):
		return NamespaceNode
	case strings.HasPrefix(s, prefixWay):
		return NamespaceWay
	case strings.HasPrefix(s, prefixRelation):
		return NamespaceRelation
	case strings.HasPrefix(s, prefixGeomNode):
		return NamespaceGeomNode
	case strings.HasPrefix(s, prefixWayArea):
		return NamespaceWayArea
	case strings.HasPrefix(s, prefixRelArea):
		return NamespaceRelArea
	}
	return NamespaceOther
}

// Kind maps a namespace to the OSM object kind it identifies
func (n Namespace) Kind() (osm.Kind, bool) {
	switch n {
	case NamespaceNode, NamespaceGeomNode:
		return osm.KindNode, true
	case NamespaceWay, NamespaceWayArea:
		return osm.KindWay, true
	case NamespaceRelation, NamespaceRelArea:
		return osm.KindRelation, true
	}
	return 0, false
}

// IDFromSubject extracts the OSM id from a subject in the given namespace
func IDFromSubject(s string, ns Namespace) (int64, error) {
	var prefix string
	switch ns {
	case NamespaceNode:
		prefix = prefixNode
	case NamespaceWay:
		prefix = prefixWay
	case NamespaceRelation:
		prefix = prefixRelation
	case NamespaceGeomNode:
		prefix = prefixGeomNode
	case NamespaceWayArea:
		prefix = prefixWayArea
	case NamespaceRelArea:
		prefix = prefixRelArea
	default:
		return 0, fmt.Errorf("subject %q has no id-bearing namespace", s)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("subject %q does not end in a positive id", s)
	}
	return id, nil
}

// RelevantObjectPredicate reports whether a kept triple with this predicate
// links to a sub-object (member entry or geometry) whose own triples must
// also be kept. The filter follows the object of such triples.
func RelevantObjectPredicate(p string, kind osm.Kind) bool {
	switch p {
	case "geo:hasGeometry", "geo:hasCentroid":
		return true
	case "osmway:node":
		return kind == osm.KindWay
	case "osmrel:member":
		return kind == osm.KindRelation
	}
	return false
}
