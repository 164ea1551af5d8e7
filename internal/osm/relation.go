package osm

import (
	"strconv"
	"strings"
)

// Member is a single relation member. Member order and roles are significant.
type Member struct {
	Kind Kind
	Ref  int64
	Role string
}

// Relation is an OSM relation. Type mirrors the value of the "type" tag;
// multipolygon relations are the only kind whose geometry depends on their
// members in the converter. NodeRefs holds node references given as legacy
// <nd> children directly inside the relation element.
type Relation struct {
	ID        int64
	Timestamp string
	Type      string
	NodeRefs  []int64
	Members   []Member
	Tags      []Tag
}

// NewRelation creates an empty relation
func NewRelation(id int64) *Relation {
	return &Relation{ID: id}
}

// AddMember appends a member, preserving order
func (r *Relation) AddMember(m Member) {
	r.Members = append(r.Members, m)
}

// AddNodeRef appends a legacy <nd> node reference
func (r *Relation) AddNodeRef(nodeID int64) {
	r.NodeRefs = append(r.NodeRefs, nodeID)
}

// AddTag appends a tag. The "type" tag also sets the relation type.
func (r *Relation) AddTag(key, value string) {
	if key == "type" {
		r.Type = value
	}
	r.Tags = append(r.Tags, Tag{Key: key, Value: value})
}

// SetType sets the relation type and records it as a "type" tag if no such
// tag is present yet. Dummies fetched from the endpoint carry the type
// separately from their tags.
func (r *Relation) SetType(t string) {
	r.Type = t
	for _, tag := range r.Tags {
		if tag.Key == "type" {
			return
		}
	}
	r.Tags = append(r.Tags, Tag{Key: "type", Value: t})
}

// IsMultipolygon reports whether the relation is a multipolygon
func (r *Relation) IsMultipolygon() bool {
	return r.Type == "multipolygon"
}

// SetTimestamp sets the timestamp, without the trailing "Z"
func (r *Relation) SetTimestamp(ts string) {
	r.Timestamp = strings.TrimSuffix(ts, "Z")
}

// ToXML returns the OSM XML 0.6 fragment for the relation:
//
//	<relation id="1"><member type="way" ref="99" role="outer"/><tag k="type" v="multipolygon"/></relation>
//
// Legacy node references round-trip as <nd> children before the members.
func (r *Relation) ToXML() string {
	var b strings.Builder
	b.WriteString(`<relation id="`)
	b.WriteString(strconv.FormatInt(r.ID, 10))
	b.WriteString(`"`)
	writeTimestamp(&b, r.Timestamp)
	b.WriteString(`>`)
	for _, ref := range r.NodeRefs {
		b.WriteString(`<nd ref="`)
		b.WriteString(strconv.FormatInt(ref, 10))
		b.WriteString(`"/>`)
	}
	for _, m := range r.Members {
		b.WriteString(`<member type="`)
		b.WriteString(m.Kind.String())
		b.WriteString(`" ref="`)
		b.WriteString(strconv.FormatInt(m.Ref, 10))
		b.WriteString(`" role="`)
		b.WriteString(escapeAttr(m.Role))
		b.WriteString(`"/>`)
	}
	writeTags(&b, r.Tags)
	b.WriteString(`</relation>`)
	return b.String()
}
