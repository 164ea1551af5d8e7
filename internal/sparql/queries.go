package sparql

import (
	"strconv"
	"strings"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

// Pure string emitters for the fixed query catalogue. Every query over a
// set of ids materializes a VALUES clause of IRIs in the appropriate
// namespace followed by a fixed graph pattern.

// DeleteSubjectsPerID returns how many VALUES entries a delete query emits
// per id of the given kind. Node and relation stars delete the object plus
// its derived geometry subject; ways additionally carry a linestring
// geometry next to the way area.
func DeleteSubjectsPerID(kind osm.Kind) int {
	if kind == osm.KindWay {
		return 3
	}
	return 2
}

func writeIDValues(b *strings.Builder, prefix string, ids []int64) {
	for _, id := range ids {
		b.WriteString(prefix)
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteString(" ")
	}
}

// InsertDataQuery emits INSERT DATA over already-formatted triples
func InsertDataQuery(triples []string) string {
	var b strings.Builder
	b.WriteString("INSERT DATA { ")
	for _, t := range triples {
		b.WriteString(t)
		b.WriteString(" . ")
	}
	b.WriteString("}")
	return b.String()
}

// DeleteQuery emits the star-plus-one-hop delete for a batch of ids of one
// kind: the subject star plus one hop into reified members and geometries.
func DeleteQuery(kind osm.Kind, ids []int64) string {
	var b strings.Builder
	b.WriteString("DELETE { ?s ?p1 ?o1 . ?o1 ?p2 ?o2 . } WHERE { VALUES ?s { ")
	switch kind {
	case osm.KindNode:
		writeIDValues(&b, "osmnode:", ids)
		writeIDValues(&b, "osm2rdfgeom:osm_node_", ids)
	case osm.KindWay:
		writeIDValues(&b, "osmway:", ids)
		writeIDValues(&b, "osm2rdfgeom:osm_wayarea_", ids)
		writeIDValues(&b, "osm2rdfgeom:osm_way_", ids)
	case osm.KindRelation:
		writeIDValues(&b, "osmrel:", ids)
		writeIDValues(&b, "osm2rdfgeom:osm_relarea_", ids)
	}
	b.WriteString("} ?s ?p1 ?o1 . OPTIONAL { ?o1 ?p2 ?o2 . } }")
	return b.String()
}

// NodeLocationsQuery looks up the WKT location of each node geometry
func NodeLocationsQuery(nodeIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?nodeGeo ?location WHERE { VALUES ?nodeGeo { ")
	writeIDValues(&b, "osm2rdfgeom:osm_node_", nodeIDs)
	b.WriteString("} ?nodeGeo geo:asWKT ?location . }")
	return b.String()
}

// WayMembersQuery returns each way's member nodes with their positions
func WayMembersQuery(wayIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?way ?node ?pos WHERE { VALUES ?way { ")
	writeIDValues(&b, "osmway:", wayIDs)
	b.WriteString("} ?way osmway:node ?member . " +
		"?member osmway:node ?node . " +
		"?member osm2rdfmember:pos ?pos . }")
	return b.String()
}

// WayReferencedNodesQuery returns the distinct nodes referenced by the ways
func WayReferencedNodesQuery(wayIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?node WHERE { VALUES ?way { ")
	writeIDValues(&b, "osmway:", wayIDs)
	b.WriteString("} ?way osmway:node ?member . ?member osmway:node ?node . } GROUP BY ?node")
	return b.String()
}

// RelationMembersQuery returns each relation's members with role, position
// and the relation's type tag
func RelationMembersQuery(relationIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?rel ?type ?memberUri ?memberRole ?memberPos WHERE { VALUES ?rel { ")
	writeIDValues(&b, "osmrel:", relationIDs)
	b.WriteString("} ?rel osmkey:type ?type . " +
		"?rel osmrel:member ?member . " +
		"?member osm2rdfmember:id ?memberUri . " +
		"?member osm2rdfmember:role ?memberRole . " +
		"?member osm2rdfmember:pos ?memberPos . }")
	return b.String()
}

// RelationMemberIDsQuery returns the distinct member ids of the relations
func RelationMemberIDsQuery(relationIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?memberUri WHERE { VALUES ?rel { ")
	writeIDValues(&b, "osmrel:", relationIDs)
	b.WriteString("} ?rel osmrel:member ?member . ?member osm2rdfmember:id ?memberUri . } GROUP BY ?memberUri")
	return b.String()
}

// WaysReferencingNodesQuery returns ways that have a member in the node set
func WaysReferencingNodesQuery(nodeIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?way WHERE { VALUES ?node { ")
	writeIDValues(&b, "osmnode:", nodeIDs)
	b.WriteString("} ?member osmway:node ?node . ?way osmway:node ?member . } GROUP BY ?way")
	return b.String()
}

// RelationsReferencingNodesQuery returns relations with a member in the node set
func RelationsReferencingNodesQuery(nodeIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?rel WHERE { VALUES ?node { ")
	writeIDValues(&b, "osmnode:", nodeIDs)
	b.WriteString("} ?rel osmrel:member ?member . ?member osm2rdfmember:id ?node . } GROUP BY ?rel")
	return b.String()
}

// RelationsReferencingWaysQuery returns relations with a member in the way set
func RelationsReferencingWaysQuery(wayIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?rel WHERE { VALUES ?way { ")
	writeIDValues(&b, "osmway:", wayIDs)
	b.WriteString("} ?rel osmrel:member ?member . ?member osm2rdfmember:id ?way . } GROUP BY ?rel")
	return b.String()
}

// RelationsReferencingRelationsQuery returns relations with a member in the
// relation set. The engine does not cascade geometry updates through
// relation-of-relation membership, but the query is part of the catalogue.
func RelationsReferencingRelationsQuery(relationIDs []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?rel WHERE { VALUES ?member { ")
	writeIDValues(&b, "osmrel:", relationIDs)
	b.WriteString("} ?rel osmrel:member ?m . ?m osm2rdfmember:id ?member . } GROUP BY ?rel")
	return b.String()
}

// TagsAndTimestampsQuery returns the tags and timestamp of each subject in
// the given namespace prefix ("osmway" or "osmrel")
func TagsAndTimestampsQuery(prefix string, ids []int64) string {
	var b strings.Builder
	b.WriteString("SELECT ?s ?key ?value ?time WHERE { VALUES ?s { ")
	writeIDValues(&b, prefix+":", ids)
	b.WriteString("} { ?s ?key ?value . FILTER(STRSTARTS(STR(?key), \"" + IRIKey + "\")) } " +
		"UNION { ?s osmmeta:timestamp ?time } }")
	return b.String()
}

// LatestNodeTimestampQuery returns the most recent timestamp of any node
func LatestNodeTimestampQuery() string {
	return "SELECT ?time WHERE { ?s rdf:type osm:node . ?s osmmeta:timestamp ?time . } " +
		"ORDER BY DESC(?time) LIMIT 1"
}
