// Package ordering keeps the integer positions of a parent's children
// contiguous. Every function here is pure: it looks at the current visible
// members of one parent and returns the index rewrites needed to apply an
// insert, remove or move. Callers persist the rewrites.
package ordering

import (
	"fmt"
	"sort"
)

// Removed is the index of an item that is not part of any ordering.
const Removed = -1

// Member is one visible child of a parent.
type Member struct {
	ID    int64
	Index int
}

// Shift rewrites one sibling's index.
type Shift struct {
	ID   int64
	From int
	To   int
}

// Plan is the outcome of a single-parent operation. Index is the final
// index of the item being inserted, removed or moved.
type Plan struct {
	Shifts []Shift
	Index  int
}

// MovePlan is the outcome of moving an item between two parents.
type MovePlan struct {
	Source []Shift
	Dest   []Shift
	Index  int
}

// Insert opens a slot for a new member. A nil target appends; a target past
// the end is clamped to the end.
func Insert(members []Member, target *int) (Plan, error) {
	at := len(members)
	if target != nil {
		if *target < 0 {
			return Plan{}, fmt.Errorf("%w: target index %d is negative", ErrInvalidOperation, *target)
		}
		if *target < at {
			at = *target
		}
	}

	var shifts []Shift
	for _, m := range members {
		if m.Index >= at {
			shifts = append(shifts, Shift{ID: m.ID, From: m.Index, To: m.Index + 1})
		}
	}
	return Plan{Shifts: shifts, Index: at}, nil
}

// Remove closes the gap left by the member with the given id.
func Remove(members []Member, id int64) (Plan, error) {
	item, ok := find(members, id)
	if !ok {
		return Plan{}, fmt.Errorf("%w: member %d", ErrNotFound, id)
	}

	var shifts []Shift
	for _, m := range members {
		if m.ID != id && m.Index > item.Index {
			shifts = append(shifts, Shift{ID: m.ID, From: m.Index, To: m.Index - 1})
		}
	}
	return Plan{Shifts: shifts, Index: Removed}, nil
}

// Reorder moves a member within its own parent. Only the siblings strictly
// between the old and new position move, each by exactly one slot. A target
// past the end is clamped to the last slot.
func Reorder(members []Member, id int64, target int) (Plan, error) {
	if target < 0 {
		return Plan{}, fmt.Errorf("%w: target index %d is negative", ErrInvalidOperation, target)
	}
	item, ok := find(members, id)
	if !ok {
		return Plan{}, fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	if target >= len(members) {
		target = len(members) - 1
	}

	return Plan{Shifts: Reindex(item.Index, target, members, id), Index: target}, nil
}

// Reindex returns the sibling rewrites for moving an item from oldIndex to
// newIndex within one parent. The item itself (skip) is never shifted.
func Reindex(oldIndex, newIndex int, siblings []Member, skip int64) []Shift {
	var shifts []Shift
	for _, m := range siblings {
		if m.ID == skip {
			continue
		}
		switch {
		case newIndex > oldIndex && m.Index > oldIndex && m.Index <= newIndex:
			shifts = append(shifts, Shift{ID: m.ID, From: m.Index, To: m.Index - 1})
		case newIndex < oldIndex && m.Index >= newIndex && m.Index < oldIndex:
			shifts = append(shifts, Shift{ID: m.ID, From: m.Index, To: m.Index + 1})
		}
	}
	return shifts
}

// Move relocates a member from source to a different parent dest. A nil
// target appends to dest.
func Move(source, dest []Member, id int64, target *int) (MovePlan, error) {
	if target != nil && *target < 0 {
		return MovePlan{}, fmt.Errorf("%w: target index %d is negative", ErrInvalidOperation, *target)
	}
	if _, ok := find(dest, id); ok {
		return MovePlan{}, fmt.Errorf("%w: member %d already belongs to the destination", ErrInvalidOperation, id)
	}

	removal, err := Remove(source, id)
	if err != nil {
		return MovePlan{}, err
	}
	insertion, err := Insert(dest, target)
	if err != nil {
		return MovePlan{}, err
	}
	return MovePlan{Source: removal.Shifts, Dest: insertion.Shifts, Index: insertion.Index}, nil
}

// Apply returns a copy of members with the shifts applied.
func Apply(members []Member, shifts []Shift) []Member {
	byID := make(map[int64]int, len(shifts))
	for _, s := range shifts {
		byID[s.ID] = s.To
	}
	out := make([]Member, len(members))
	for i, m := range members {
		if to, ok := byID[m.ID]; ok {
			m.Index = to
		}
		out[i] = m
	}
	return out
}

// Validate checks that the members' indices are exactly 0..n-1.
func Validate(members []Member) error {
	seen := make([]bool, len(members))
	for _, m := range members {
		if m.Index < 0 || m.Index >= len(members) {
			return fmt.Errorf("member %d has index %d outside 0..%d", m.ID, m.Index, len(members)-1)
		}
		if seen[m.Index] {
			return fmt.Errorf("index %d is used more than once", m.Index)
		}
		seen[m.Index] = true
	}
	return nil
}

// Sorted returns the members ordered by index, ties broken by id.
func Sorted(members []Member) []Member {
	out := append([]Member(nil), members...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index == out[j].Index {
			return out[i].ID < out[j].ID
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func find(members []Member, id int64) (Member, bool) {
	for _, m := range members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}
