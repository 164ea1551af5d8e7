package osc

import (
	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

// Action represents the type of change in an OSC file
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Change represents a single OSM change from an OSC file. Exactly one of
// Node, Way, Relation is set, matching Kind.
type Change struct {
	Action   Action
	Kind     osm.Kind
	Node     *osm.Node
	Way      *osm.Way
	Relation *osm.Relation
}

// ID returns the id of the changed object
func (c Change) ID() int64 {
	switch c.Kind {
	case osm.KindNode:
		return c.Node.ID
	case osm.KindWay:
		return c.Way.ID
	case osm.KindRelation:
		return c.Relation.ID
	}
	return 0
}

// ToXML serializes the changed object back to its OSM XML fragment.
// Deletes carry no XML.
func (c Change) ToXML() string {
	if c.Action == ActionDelete {
		return ""
	}
	switch c.Kind {
	case osm.KindNode:
		return c.Node.ToXML()
	case osm.KindWay:
		return c.Way.ToXML()
	case osm.KindRelation:
		return c.Relation.ToXML()
	}
	return ""
}

// Stats tracks OSC parsing statistics
type Stats struct {
	NodesCreated      int64
	NodesModified     int64
	NodesDeleted      int64
	WaysCreated       int64
	WaysModified      int64
	WaysDeleted       int64
	RelationsCreated  int64
	RelationsModified int64
	RelationsDeleted  int64
}

// Total returns total number of changes
func (s *Stats) Total() int64 {
	return s.NodesCreated + s.NodesModified + s.NodesDeleted +
		s.WaysCreated + s.WaysModified + s.WaysDeleted +
		s.RelationsCreated + s.RelationsModified + s.RelationsDeleted
}
