package osm

import (
	"strconv"
	"strings"
)

// Way is an OSM way: an ordered list of node references plus tags. Ways
// referenced from the change set but not themselves changed are materialized
// as dummies whose node references come from the endpoint.
type Way struct {
	ID        int64
	Timestamp string
	NodeRefs  []int64
	Tags      []Tag
}

// NewWay creates an empty way
func NewWay(id int64) *Way {
	return &Way{ID: id}
}

// AddNode appends a node reference. Reference order is significant.
func (w *Way) AddNode(nodeID int64) {
	w.NodeRefs = append(w.NodeRefs, nodeID)
}

// AddTag appends a tag, preserving insertion order
func (w *Way) AddTag(key, value string) {
	w.Tags = append(w.Tags, Tag{Key: key, Value: value})
}

// SetTimestamp sets the timestamp, without the trailing "Z"
func (w *Way) SetTimestamp(ts string) {
	w.Timestamp = strings.TrimSuffix(ts, "Z")
}

// ToXML returns the OSM XML 0.6 fragment for the way:
//
//	<way id="1"><nd ref="1"/><nd ref="2"/><tag k="highway" v="primary"/></way>
func (w *Way) ToXML() string {
	var b strings.Builder
	b.WriteString(`<way id="`)
	b.WriteString(strconv.FormatInt(w.ID, 10))
	b.WriteString(`"`)
	writeTimestamp(&b, w.Timestamp)
	b.WriteString(`>`)
	for _, ref := range w.NodeRefs {
		b.WriteString(`<nd ref="`)
		b.WriteString(strconv.FormatInt(ref, 10))
		b.WriteString(`"/>`)
	}
	writeTags(&b, w.Tags)
	b.WriteString(`</way>`)
	return b.String()
}
