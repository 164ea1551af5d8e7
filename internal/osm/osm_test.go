package osm

import (
	"testing"
)

func TestNodeToXML(t *testing.T) {
	tests := []struct {
		name string
		node func() *Node
		want string
	}{
		{
			name: "dummy node without tags is self-closing",
			node: func() *Node {
				return NewNode(42, "43.7384", "7.4246")
			},
			want: `<node id="42" lat="43.7384" lon="7.4246"/>`,
		},
		{
			name: "node with tags",
			node: func() *Node {
				n := NewNode(1, "1.0", "2.0")
				n.AddTag("name", "Test Node")
				n.AddTag("amenity", "cafe")
				return n
			},
			want: `<node id="1" lat="1.0" lon="2.0"><tag k="name" v="Test Node"/><tag k="amenity" v="cafe"/></node>`,
		},
		{
			name: "timestamp serialized with Z suffix",
			node: func() *Node {
				n := NewNode(7, "0.5", "0.5")
				n.SetTimestamp("2024-01-15T12:00:00Z")
				return n
			},
			want: `<node id="7" timestamp="2024-01-15T12:00:00Z" lat="0.5" lon="0.5"/>`,
		},
		{
			name: "tag values are escaped",
			node: func() *Node {
				n := NewNode(3, "1.0", "2.0")
				n.AddTag("name", `Fish & "Chips" <Bar>`)
				return n
			},
			want: `<node id="3" lat="1.0" lon="2.0"><tag k="name" v="Fish &amp; &quot;Chips&quot; &lt;Bar&gt;"/></node>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node().ToXML(); got != tt.want {
				t.Errorf("ToXML() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNodeFromPoint(t *testing.T) {
	node, err := NodeFromPoint(10, "POINT(2.0 1.0)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Lon != "2.0" || node.Lat != "1.0" {
		t.Errorf("got lon=%s lat=%s, want lon=2.0 lat=1.0", node.Lon, node.Lat)
	}
	if got := node.ToXML(); got != `<node id="10" lat="1.0" lon="2.0"/>` {
		t.Errorf("ToXML() = %s", got)
	}

	if _, err := NodeFromPoint(10, "LINESTRING(1 2, 3 4)"); err == nil {
		t.Error("expected error for non-point WKT")
	}
	if _, err := NodeFromPoint(10, "POINT(x y)"); err == nil {
		t.Error("expected error for malformed coordinates")
	}
}

func TestWayToXML(t *testing.T) {
	w := NewWay(1)
	w.AddNode(1)
	w.AddNode(2)
	w.AddNode(3)
	want := `<way id="1"><nd ref="1"/><nd ref="2"/><nd ref="3"/></way>`
	if got := w.ToXML(); got != want {
		t.Errorf("ToXML() = %s, want %s", got, want)
	}

	w = NewWay(50)
	w.SetTimestamp("2024-01-15T12:00:00")
	w.AddNode(10)
	w.AddTag("highway", "primary")
	want = `<way id="50" timestamp="2024-01-15T12:00:00Z"><nd ref="10"/><tag k="highway" v="primary"/></way>`
	if got := w.ToXML(); got != want {
		t.Errorf("ToXML() = %s, want %s", got, want)
	}
}

func TestRelationToXML(t *testing.T) {
	r := NewRelation(7)
	r.AddMember(Member{Kind: KindWay, Ref: 99, Role: "outer"})
	r.AddMember(Member{Kind: KindNode, Ref: 5, Role: "admin_centre"})
	r.AddTag("type", "multipolygon")

	want := `<relation id="7">` +
		`<member type="way" ref="99" role="outer"/>` +
		`<member type="node" ref="5" role="admin_centre"/>` +
		`<tag k="type" v="multipolygon"/></relation>`
	if got := r.ToXML(); got != want {
		t.Errorf("ToXML() = %s, want %s", got, want)
	}
	if !r.IsMultipolygon() {
		t.Error("expected multipolygon")
	}

	// Legacy node references serialize before members
	r = NewRelation(8)
	r.AddNodeRef(11)
	r.AddMember(Member{Kind: KindRelation, Ref: 2, Role: "inner"})
	want = `<relation id="8"><nd ref="11"/><member type="relation" ref="2" role="inner"/></relation>`
	if got := r.ToXML(); got != want {
		t.Errorf("ToXML() = %s, want %s", got, want)
	}
}

func TestRelationSetType(t *testing.T) {
	r := NewRelation(1)
	r.SetType("multipolygon")
	if len(r.Tags) != 1 || r.Tags[0].Key != "type" || r.Tags[0].Value != "multipolygon" {
		t.Errorf("SetType did not record the type tag: %+v", r.Tags)
	}

	// An existing type tag is not duplicated
	r.SetType("multipolygon")
	if len(r.Tags) != 1 {
		t.Errorf("expected 1 tag, got %d", len(r.Tags))
	}
}
