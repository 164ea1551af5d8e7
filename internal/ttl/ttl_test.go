package ttl

import (
	"testing"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Triple
		ok   bool
	}{
		{
			name: "plain triple",
			line: "osmnode:42 rdf:type osm:node .",
			want: Triple{Subject: "osmnode:42", Predicate: "rdf:type", Object: "osm:node"},
			ok:   true,
		},
		{
			name: "object with internal whitespace",
			line: `osm2rdfgeom:osm_node_10 geo:asWKT "POINT(2.0 1.0)"^^geo:wktLiteral .`,
			want: Triple{
				Subject:   "osm2rdfgeom:osm_node_10",
				Predicate: "geo:asWKT",
				Object:    `"POINT(2.0 1.0)"^^geo:wktLiteral`,
			},
			ok: true,
		},
		{
			name: "blank node subject",
			line: "_:genid1 osmway:node osmnode:5 .",
			want: Triple{Subject: "_:genid1", Predicate: "osmway:node", Object: "osmnode:5"},
			ok:   true,
		},
		{
			name: "prefix declaration skipped",
			line: "@prefix osmnode: <https://www.openstreetmap.org/node/> .",
			ok:   false,
		},
		{
			name: "blank line skipped",
			line: "   ",
			ok:   false,
		},
		{
			name: "incomplete statement skipped",
			line: "osmnode:42 rdf:type",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSubjectNamespace(t *testing.T) {
	tests := []struct {
		subject string
		want    Namespace
		id      int64
	}{
		{"osmnode:42", NamespaceNode, 42},
		{"osmway:50", NamespaceWay, 50},
		{"osmrel:7", NamespaceRelation, 7},
		{"osm2rdfgeom:osm_node_10", NamespaceGeomNode, 10},
		{"osm2rdfgeom:osm_wayarea_50", NamespaceWayArea, 50},
		{"osm2rdfgeom:osm_relarea_7", NamespaceRelArea, 7},
		{"_:genid3", NamespaceOther, 0},
		{"osmkey:name", NamespaceOther, 0},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			ns := SubjectNamespace(tt.subject)
			if ns != tt.want {
				t.Fatalf("SubjectNamespace(%q) = %d, want %d", tt.subject, ns, tt.want)
			}
			if tt.want == NamespaceOther {
				return
			}
			id, err := IDFromSubject(tt.subject, ns)
			if err != nil {
				t.Fatalf("IDFromSubject: %v", err)
			}
			if id != tt.id {
				t.Errorf("IDFromSubject(%q) = %d, want %d", tt.subject, id, tt.id)
			}
		})
	}
}

func TestIDFromSubjectErrors(t *testing.T) {
	if _, err := IDFromSubject("osmnode:abc", NamespaceNode); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := IDFromSubject("osmnode:-4", NamespaceNode); err == nil {
		t.Error("expected error for negative id")
	}
	if _, err := IDFromSubject("_:b0", NamespaceOther); err == nil {
		t.Error("expected error for other namespace")
	}
}

func TestRelevantObjectPredicate(t *testing.T) {
	tests := []struct {
		predicate string
		kind      osm.Kind
		want      bool
	}{
		{"osmway:node", osm.KindWay, true},
		{"osmway:node", osm.KindRelation, false},
		{"osmrel:member", osm.KindRelation, true},
		{"osmrel:member", osm.KindWay, false},
		{"geo:hasGeometry", osm.KindNode, true},
		{"geo:hasCentroid", osm.KindRelation, true},
		{"osmkey:name", osm.KindWay, false},
	}

	for _, tt := range tests {
		if got := RelevantObjectPredicate(tt.predicate, tt.kind); got != tt.want {
			t.Errorf("RelevantObjectPredicate(%q, %s) = %v, want %v", tt.predicate, tt.kind, got, tt.want)
		}
	}
}
