package engine

import (
	"strings"

	"github.com/wegman-software/osm2sparql-go/internal/ttl"
)

// tripleFilter keeps the triples of the converter output that semantically
// belong to an affected subject. It tracks a single link: the object of
// the most recently kept triple whose predicate points at a sub-object
// (member entries, geometries), so the sub-object's own triples are
// absorbed as well.
type tripleFilter struct {
	cs          *ChangeSet
	nodes       idSet
	ways        idSet
	relations   idSet
	currentLink string
}

func newTripleFilter(cs *ChangeSet) *tripleFilter {
	return &tripleFilter{
		cs:        cs,
		nodes:     cs.NodesToInsert(),
		ways:      cs.WaysToInsert(),
		relations: cs.RelationsToInsert(),
	}
}

// Keep decides whether a triple survives the filter
func (f *tripleFilter) Keep(t ttl.Triple) bool {
	// Sub-object triples linked from a kept subject
	if f.currentLink != "" && t.Subject == f.currentLink {
		return true
	}

	ns := ttl.SubjectNamespace(t.Subject)
	kind, ok := ns.Kind()
	if !ok {
		return false
	}
	id, err := ttl.IDFromSubject(t.Subject, ns)
	if err != nil {
		return false
	}

	var keep bool
	switch ns {
	case ttl.NamespaceNode, ttl.NamespaceGeomNode:
		keep = f.nodes.has(id)
	case ttl.NamespaceWay, ttl.NamespaceWayArea:
		keep = f.ways.has(id)
	case ttl.NamespaceRelation, ttl.NamespaceRelArea:
		keep = f.relations.has(id)
	}
	if !keep {
		return false
	}

	if ttl.RelevantObjectPredicate(t.Predicate, kind) {
		f.currentLink = t.Object
	}
	return true
}

// blankGrouper collapses kept triples whose object is a blank node into a
// bracketed inline form by consuming the consecutive triples carried by
// that blank node:
//
//	s p [ p1 o1 ; p2 o2 ]
//
// All other triples pass through unchanged. Formatted triples are handed
// to out without a statement terminator.
type blankGrouper struct {
	out   func(string) error
	head  *ttl.Triple
	props []string
}

func newBlankGrouper(out func(string) error) *blankGrouper {
	return &blankGrouper{out: out}
}

// Add feeds one kept triple through the grouper
func (g *blankGrouper) Add(t ttl.Triple) error {
	if g.head != nil && t.Subject == g.head.Object {
		g.props = append(g.props, t.Predicate+" "+t.Object)
		return nil
	}
	if err := g.flush(); err != nil {
		return err
	}
	if t.IsBlankObject() {
		g.head = &t
		return nil
	}
	return g.out(t.Subject + " " + t.Predicate + " " + t.Object)
}

// Close flushes a pending blank-node group
func (g *blankGrouper) Close() error {
	return g.flush()
}

func (g *blankGrouper) flush() error {
	if g.head == nil {
		return nil
	}
	head := g.head
	props := g.props
	g.head = nil
	g.props = nil
	return g.out(head.Subject + " " + head.Predicate + " [ " + strings.Join(props, " ; ") + " ]")
}
