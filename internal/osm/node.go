package osm

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is an OSM node. Lat and Lon keep the lexical form they were parsed
// with so serialization does not reformat coordinates. A node carrying only
// id and position is a dummy node that exists to give the converter
// positional input.
type Node struct {
	ID        int64
	Lat       string
	Lon       string
	Timestamp string
	Tags      []Tag
}

// NewNode creates a node with a position
func NewNode(id int64, lat, lon string) *Node {
	return &Node{ID: id, Lat: lat, Lon: lon}
}

// NodeFromPoint creates a dummy node from a WKT point literal, e.g.
// "POINT(7.4246 43.7384)". WKT stores longitude first.
func NodeFromPoint(id int64, wkt string) (*Node, error) {
	s := strings.TrimSpace(wkt)
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open || !strings.EqualFold(strings.TrimSpace(s[:open]), "POINT") {
		return nil, fmt.Errorf("no WKT point found in %q", wkt)
	}
	coords := strings.Fields(s[open+1 : end])
	if len(coords) != 2 {
		return nil, fmt.Errorf("no WKT point found in %q", wkt)
	}
	for _, c := range coords {
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return nil, fmt.Errorf("malformed WKT point coordinate %q: %w", c, err)
		}
	}
	return &Node{ID: id, Lat: coords[1], Lon: coords[0]}, nil
}

// AddTag appends a tag, preserving insertion order
func (n *Node) AddTag(key, value string) {
	n.Tags = append(n.Tags, Tag{Key: key, Value: value})
}

// SetTimestamp sets the timestamp, without the trailing "Z"
func (n *Node) SetTimestamp(ts string) {
	n.Timestamp = strings.TrimSuffix(ts, "Z")
}

// ToXML returns the OSM XML 0.6 fragment for the node:
//
//	<node id="1" lat="43.7" lon="7.4"><tag k="name" v="x"/></node>
//
// The timestamp attribute is elided entirely when empty, and the element is
// self-closing when the node has no tags.
func (n *Node) ToXML() string {
	var b strings.Builder
	b.WriteString(`<node id="`)
	b.WriteString(strconv.FormatInt(n.ID, 10))
	b.WriteString(`"`)
	writeTimestamp(&b, n.Timestamp)
	b.WriteString(` lat="`)
	b.WriteString(n.Lat)
	b.WriteString(`" lon="`)
	b.WriteString(n.Lon)
	b.WriteString(`"`)
	if len(n.Tags) == 0 {
		b.WriteString(`/>`)
		return b.String()
	}
	b.WriteString(`>`)
	writeTags(&b, n.Tags)
	b.WriteString(`</node>`)
	return b.String()
}
