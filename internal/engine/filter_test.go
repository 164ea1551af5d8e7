package engine

import (
	"testing"

	"github.com/wegman-software/osm2sparql-go/internal/ttl"
)

// converterOutput is the shape of the triples the converter emits for a
// new multipolygon relation over an existing way: the relation star, its
// member sub-object as a blank node, the relation area geometry, and the
// dummy way's own triples which must be dropped.
var converterOutput = []string{
	"osmrel:7 rdf:type osm:relation .",
	`osmrel:7 osmkey:type "multipolygon" .`,
	"osmrel:7 osmrel:member _:b0 .",
	"_:b0 osm2rdfmember:id osmway:99 .",
	`_:b0 osm2rdfmember:role "outer" .`,
	`_:b0 osm2rdfmember:pos "0"^^xsd:integer .`,
	"osmrel:7 geo:hasGeometry osm2rdfgeom:osm_relarea_7 .",
	`osm2rdfgeom:osm_relarea_7 geo:asWKT "POLYGON((0 0,1 0,1 1,0 0))"^^geo:wktLiteral .`,
	"osmway:99 rdf:type osm:way .",
	`osmway:99 osmkey:highway "primary" .`,
	"osmnode:5 rdf:type osm:node .",
}

func filterAll(cs *ChangeSet, lines []string) []ttl.Triple {
	filter := newTripleFilter(cs)
	var kept []ttl.Triple
	for _, line := range lines {
		triple, ok := ttl.ParseLine(line)
		if !ok {
			continue
		}
		if filter.Keep(triple) {
			kept = append(kept, triple)
		}
	}
	return kept
}

func TestTripleFilter(t *testing.T) {
	cs := NewChangeSet()
	cs.CreatedRelations.add(7)

	kept := filterAll(cs, converterOutput)

	if len(kept) != 8 {
		t.Fatalf("expected 8 kept triples, got %d: %+v", len(kept), kept)
	}
	for _, triple := range kept {
		if triple.Subject == "osmway:99" || triple.Subject == "osmnode:5" {
			t.Errorf("dummy object triple kept: %+v", triple)
		}
	}

	// The member sub-object triples were absorbed via the link
	blanks := 0
	for _, triple := range kept {
		if triple.Subject == "_:b0" {
			blanks++
		}
	}
	if blanks != 3 {
		t.Errorf("expected 3 absorbed blank-node triples, got %d", blanks)
	}
}

func TestTripleFilterIdempotent(t *testing.T) {
	cs := NewChangeSet()
	cs.CreatedRelations.add(7)
	cs.ModifiedNodes.add(5)

	first := filterAll(cs, converterOutput)
	second := filterAll(cs, converterOutput)

	if len(first) != len(second) {
		t.Fatalf("filter not idempotent: %d vs %d triples", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("triple %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestTripleFilterWayGeometry(t *testing.T) {
	cs := NewChangeSet()
	cs.WaysToUpdateGeometry.add(50)

	lines := []string{
		"osmway:50 rdf:type osm:way .",
		"osmway:50 osmway:node _:b1 .",
		"_:b1 osmway:node osmnode:10 .",
		`_:b1 osm2rdfmember:pos "0"^^xsd:integer .`,
		`osm2rdfgeom:osm_wayarea_50 geo:asWKT "POLYGON((0 0,1 0,1 1,0 0))"^^geo:wktLiteral .`,
		"osmnode:10 rdf:type osm:node .",
	}
	kept := filterAll(cs, lines)
	if len(kept) != 5 {
		t.Fatalf("expected 5 kept triples, got %d: %+v", len(kept), kept)
	}
	for _, triple := range kept {
		if triple.Subject == "osmnode:10" {
			t.Errorf("node triple kept for way-only filter: %+v", triple)
		}
	}
}

func TestBlankGrouper(t *testing.T) {
	var out []string
	grouper := newBlankGrouper(func(line string) error {
		out = append(out, line)
		return nil
	})

	triples := []ttl.Triple{
		{Subject: "osmrel:7", Predicate: "rdf:type", Object: "osm:relation"},
		{Subject: "osmrel:7", Predicate: "osmrel:member", Object: "_:b0"},
		{Subject: "_:b0", Predicate: "osm2rdfmember:id", Object: "osmway:99"},
		{Subject: "_:b0", Predicate: "osm2rdfmember:role", Object: `"outer"`},
		{Subject: "osmrel:7", Predicate: "geo:hasGeometry", Object: "osm2rdfgeom:osm_relarea_7"},
	}
	for _, triple := range triples {
		if err := grouper.Add(triple); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := grouper.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []string{
		"osmrel:7 rdf:type osm:relation",
		`osmrel:7 osmrel:member [ osm2rdfmember:id osmway:99 ; osm2rdfmember:role "outer" ]`,
		"osmrel:7 geo:hasGeometry osm2rdfgeom:osm_relarea_7",
	}
	if len(out) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestBlankGrouperTrailingGroup(t *testing.T) {
	var out []string
	grouper := newBlankGrouper(func(line string) error {
		out = append(out, line)
		return nil
	})

	grouper.Add(ttl.Triple{Subject: "osmway:50", Predicate: "osmway:node", Object: "_:b1"})
	grouper.Add(ttl.Triple{Subject: "_:b1", Predicate: "osmway:node", Object: "osmnode:10"})
	if err := grouper.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(out), out)
	}
	if out[0] != "osmway:50 osmway:node [ osmway:node osmnode:10 ]" {
		t.Errorf("line = %q", out[0])
	}
}
