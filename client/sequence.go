// Package client keeps a local copy of board order in step with the server.
// Every broadcast carries the canonical post-mutation entity, so the client
// applies each one as an absolute placement using the same reindex rules as
// the server and never derives order on its own.
package client

import (
	"sync"

	"github.com/CrowderSoup/taskboard/ordering"
)

// Sequence is the ordered ids under one parent.
type Sequence struct {
	mu      sync.Mutex
	members []ordering.Member
	// id -> index held before an unconfirmed local move, Removed if the
	// item was not in the sequence
	pending map[int64]int
}

func NewSequence() *Sequence {
	return &Sequence{pending: make(map[int64]int)}
}

// Reset replaces the contents with ids in order.
func (s *Sequence) Reset(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make([]ordering.Member, len(ids))
	for i, id := range ids {
		s.members[i] = ordering.Member{ID: id, Index: i}
	}
	s.pending = make(map[int64]int)
}

// Place puts id at index, inserting it when absent. Placing an item where
// it already is changes nothing, so duplicate deliveries are harmless.
// Any pending speculation for id is settled by the placement.
func (s *Sequence) Place(id int64, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.place(id, index)
}

// Remove drops id and closes its gap. Unknown ids are ignored.
func (s *Sequence) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.remove(id)
}

// Speculate shows a local move before the server confirms it. The returned
// undo puts the item back unless a broadcast or Confirm settled it first.
func (s *Sequence) Speculate(id int64, index int) (undo func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		prev := ordering.Removed
		if m, ok := s.find(id); ok {
			prev = m.Index
		}
		s.pending[id] = prev
	}
	s.place(id, index)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		prev, ok := s.pending[id]
		if !ok {
			return
		}
		delete(s.pending, id)
		if prev == ordering.Removed {
			s.remove(id)
			return
		}
		s.place(id, prev)
	}
}

// Confirm keeps the speculative position of id.
func (s *Sequence) Confirm(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending reports whether id has an unconfirmed local move.
func (s *Sequence) Pending(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// IDs returns the ids in order.
func (s *Sequence) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := ordering.Sorted(s.members)
	ids := make([]int64, len(sorted))
	for i, m := range sorted {
		ids[i] = m.ID
	}
	return ids
}

func (s *Sequence) Index(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.find(id)
	return m.Index, ok
}

func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Members returns a copy of the members in order.
func (s *Sequence) Members() []ordering.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordering.Sorted(s.members)
}

func (s *Sequence) place(id int64, index int) {
	if index < 0 {
		s.remove(id)
		return
	}
	if _, ok := s.find(id); ok {
		plan, err := ordering.Reorder(s.members, id, index)
		if err != nil {
			return
		}
		s.members = ordering.Apply(s.members, plan.Shifts)
		s.setIndex(id, plan.Index)
		return
	}
	plan, err := ordering.Insert(s.members, &index)
	if err != nil {
		return
	}
	s.members = append(ordering.Apply(s.members, plan.Shifts), ordering.Member{ID: id, Index: plan.Index})
}

func (s *Sequence) remove(id int64) {
	plan, err := ordering.Remove(s.members, id)
	if err != nil {
		return
	}
	s.members = ordering.Apply(s.members, plan.Shifts)
	out := s.members[:0]
	for _, m := range s.members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	s.members = out
}

func (s *Sequence) setIndex(id int64, index int) {
	for i := range s.members {
		if s.members[i].ID == id {
			s.members[i].Index = index
			return
		}
	}
}

func (s *Sequence) find(id int64) (ordering.Member, bool) {
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return ordering.Member{}, false
}
