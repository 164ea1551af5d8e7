package engine

import (
	"fmt"
	"sort"

	"github.com/wegman-software/osm2sparql-go/internal/osm"
)

// InvariantError reports a violated set-disjointness assertion. It always
// indicates a bug in the engine rather than bad input.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("change set invariant violated: %s", e.Detail)
}

type idSet map[int64]struct{}

func newIDSet() idSet {
	return make(idSet)
}

func (s idSet) add(id int64) {
	s[id] = struct{}{}
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

// sorted returns the ids in ascending order. Batching order is arbitrary
// per the contract; sorting keeps runs reproducible.
func (s idSet) sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// union returns the sorted union of the given sets
func union(sets ...idSet) []int64 {
	merged := newIDSet()
	for _, s := range sets {
		for id := range s {
			merged.add(id)
		}
	}
	return merged.sorted()
}

// ChangeSet partitions the ids touched by one change file. The
// created/modified/deleted sets per kind stay pairwise disjoint, and the
// referenced sets stay disjoint from everything the change file or the
// geometry closure already covers.
type ChangeSet struct {
	CreatedNodes  idSet
	ModifiedNodes idSet
	DeletedNodes  idSet

	CreatedWays  idSet
	ModifiedWays idSet
	DeletedWays  idSet

	CreatedRelations  idSet
	ModifiedRelations idSet
	DeletedRelations  idSet

	// Objects whose geometry must be recomputed because of referential
	// effects, not because they changed themselves
	WaysToUpdateGeometry      idSet
	RelationsToUpdateGeometry idSet

	// Unchanged objects that must be materialized as dummies for the
	// converter
	ReferencedNodes     idSet
	ReferencedWays      idSet
	ReferencedRelations idSet

	// Modified relations with type=multipolygon. Recorded during
	// classification; the relation-of-relation cascade that would consume
	// this set is skipped because the converter does not derive geometry
	// through relation membership.
	ModifiedAreas idSet
}

// NewChangeSet creates an empty change set
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		CreatedNodes:              newIDSet(),
		ModifiedNodes:             newIDSet(),
		DeletedNodes:              newIDSet(),
		CreatedWays:               newIDSet(),
		ModifiedWays:              newIDSet(),
		DeletedWays:               newIDSet(),
		CreatedRelations:          newIDSet(),
		ModifiedRelations:         newIDSet(),
		DeletedRelations:          newIDSet(),
		WaysToUpdateGeometry:      newIDSet(),
		RelationsToUpdateGeometry: newIDSet(),
		ReferencedNodes:           newIDSet(),
		ReferencedWays:            newIDSet(),
		ReferencedRelations:       newIDSet(),
		ModifiedAreas:             newIDSet(),
	}
}

// InChangeFile reports whether the id of the given kind appears anywhere
// in the change file
func (cs *ChangeSet) InChangeFile(kind osm.Kind, id int64) bool {
	switch kind {
	case osm.KindNode:
		return cs.CreatedNodes.has(id) || cs.ModifiedNodes.has(id) || cs.DeletedNodes.has(id)
	case osm.KindWay:
		return cs.CreatedWays.has(id) || cs.ModifiedWays.has(id) || cs.DeletedWays.has(id)
	case osm.KindRelation:
		return cs.CreatedRelations.has(id) || cs.ModifiedRelations.has(id) || cs.DeletedRelations.has(id)
	}
	return false
}

// NodesToInsert returns the node ids whose triples the filter keeps
func (cs *ChangeSet) NodesToInsert() idSet {
	merged := newIDSet()
	for id := range cs.CreatedNodes {
		merged.add(id)
	}
	for id := range cs.ModifiedNodes {
		merged.add(id)
	}
	return merged
}

// WaysToInsert returns the way ids whose triples the filter keeps
func (cs *ChangeSet) WaysToInsert() idSet {
	merged := newIDSet()
	for id := range cs.CreatedWays {
		merged.add(id)
	}
	for id := range cs.ModifiedWays {
		merged.add(id)
	}
	for id := range cs.WaysToUpdateGeometry {
		merged.add(id)
	}
	return merged
}

// RelationsToInsert returns the relation ids whose triples the filter keeps
func (cs *ChangeSet) RelationsToInsert() idSet {
	merged := newIDSet()
	for id := range cs.CreatedRelations {
		merged.add(id)
	}
	for id := range cs.ModifiedRelations {
		merged.add(id)
	}
	for id := range cs.RelationsToUpdateGeometry {
		merged.add(id)
	}
	return merged
}

// CheckInvariants asserts the set-disjointness guarantees
func (cs *ChangeSet) CheckInvariants() error {
	kinds := []struct {
		name                        string
		created, modified, deleted  idSet
		geometryUpdate, referenced  idSet
	}{
		{"node", cs.CreatedNodes, cs.ModifiedNodes, cs.DeletedNodes, nil, cs.ReferencedNodes},
		{"way", cs.CreatedWays, cs.ModifiedWays, cs.DeletedWays, cs.WaysToUpdateGeometry, cs.ReferencedWays},
		{"relation", cs.CreatedRelations, cs.ModifiedRelations, cs.DeletedRelations, cs.RelationsToUpdateGeometry, cs.ReferencedRelations},
	}

	for _, k := range kinds {
		if err := disjoint(k.name+" created/modified", k.created, k.modified); err != nil {
			return err
		}
		if err := disjoint(k.name+" created/deleted", k.created, k.deleted); err != nil {
			return err
		}
		if err := disjoint(k.name+" modified/deleted", k.modified, k.deleted); err != nil {
			return err
		}
		for _, changed := range []struct {
			name string
			set  idSet
		}{
			{"created", k.created},
			{"modified", k.modified},
			{"deleted", k.deleted},
			{"geometry-update", k.geometryUpdate},
		} {
			if changed.set == nil {
				continue
			}
			if err := disjoint(k.name+" referenced/"+changed.name, k.referenced, changed.set); err != nil {
				return err
			}
		}
		if k.geometryUpdate != nil {
			if err := disjoint(k.name+" geometry-update/created", k.geometryUpdate, k.created); err != nil {
				return err
			}
			if err := disjoint(k.name+" geometry-update/modified", k.geometryUpdate, k.modified); err != nil {
				return err
			}
			if err := disjoint(k.name+" geometry-update/deleted", k.geometryUpdate, k.deleted); err != nil {
				return err
			}
		}
	}
	return nil
}

func disjoint(name string, a, b idSet) error {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if large.has(id) {
			return &InvariantError{Detail: fmt.Sprintf("%s sets share id %d", name, id)}
		}
	}
	return nil
}
