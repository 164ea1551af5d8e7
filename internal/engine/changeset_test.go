package engine

import (
	"errors"
	"testing"
)

func TestCheckInvariants(t *testing.T) {
	cs := NewChangeSet()
	cs.CreatedNodes.add(1)
	cs.ModifiedNodes.add(2)
	cs.DeletedNodes.add(3)
	cs.ModifiedWays.add(50)
	cs.WaysToUpdateGeometry.add(51)
	cs.ReferencedWays.add(52)
	cs.ReferencedNodes.add(4)

	if err := cs.CheckInvariants(); err != nil {
		t.Fatalf("unexpected invariant violation: %v", err)
	}

	tests := []struct {
		name  string
		corrupt func(*ChangeSet)
	}{
		{"created and modified share a node", func(cs *ChangeSet) {
			cs.CreatedNodes.add(9)
			cs.ModifiedNodes.add(9)
		}},
		{"modified and deleted share a way", func(cs *ChangeSet) {
			cs.ModifiedWays.add(9)
			cs.DeletedWays.add(9)
		}},
		{"referenced node also modified", func(cs *ChangeSet) {
			cs.ModifiedNodes.add(9)
			cs.ReferencedNodes.add(9)
		}},
		{"referenced way also in geometry closure", func(cs *ChangeSet) {
			cs.WaysToUpdateGeometry.add(9)
			cs.ReferencedWays.add(9)
		}},
		{"geometry-update way also modified", func(cs *ChangeSet) {
			cs.ModifiedWays.add(9)
			cs.WaysToUpdateGeometry.add(9)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewChangeSet()
			tt.corrupt(cs)
			err := cs.CheckInvariants()
			var invariant *InvariantError
			if !errors.As(err, &invariant) {
				t.Errorf("expected InvariantError, got %v", err)
			}
		})
	}
}

func TestInsertSets(t *testing.T) {
	cs := NewChangeSet()
	cs.CreatedNodes.add(1)
	cs.ModifiedNodes.add(2)
	cs.DeletedNodes.add(3)
	cs.CreatedWays.add(10)
	cs.ModifiedWays.add(11)
	cs.WaysToUpdateGeometry.add(12)
	cs.RelationsToUpdateGeometry.add(20)

	nodes := cs.NodesToInsert()
	if len(nodes) != 2 || !nodes.has(1) || !nodes.has(2) {
		t.Errorf("NodesToInsert = %v", nodes.sorted())
	}
	if nodes.has(3) {
		t.Error("deleted node must not be inserted")
	}

	ways := cs.WaysToInsert()
	if len(ways) != 3 || !ways.has(10) || !ways.has(11) || !ways.has(12) {
		t.Errorf("WaysToInsert = %v", ways.sorted())
	}

	relations := cs.RelationsToInsert()
	if len(relations) != 1 || !relations.has(20) {
		t.Errorf("RelationsToInsert = %v", relations.sorted())
	}
}

func TestUnionSorted(t *testing.T) {
	a := newIDSet()
	a.add(5)
	a.add(1)
	b := newIDSet()
	b.add(3)
	b.add(5)

	got := union(a, b)
	want := []int64{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("union = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("union = %v, want %v", got, want)
			break
		}
	}
}
