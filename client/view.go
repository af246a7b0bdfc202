package client

import (
	"sort"
	"sync"

	"github.com/CrowderSoup/taskboard/models"
)

// BoardView is one board's local model: the list order, the card order of
// every loaded list and the subtask order of every loaded card, kept in
// step by applying broadcasts.
type BoardView struct {
	BoardID int64

	mu       sync.Mutex
	lists    *Sequence
	cards    map[int64]*Sequence
	subtasks map[int64]*Sequence

	listByID map[int64]models.TaskList
	cardByID map[int64]models.Card
}

func NewBoardView(boardID int64) *BoardView {
	return &BoardView{
		BoardID:  boardID,
		lists:    NewSequence(),
		cards:    make(map[int64]*Sequence),
		subtasks: make(map[int64]*Sequence),
		listByID: make(map[int64]models.TaskList),
		cardByID: make(map[int64]models.Card),
	}
}

// LoadLists replaces the list order with a fetched snapshot.
func (v *BoardView) LoadLists(lists []models.TaskList) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]int64, 0, len(lists))
	for _, l := range sortedLists(lists) {
		if l.Status == models.StatusDeleted {
			continue
		}
		ids = append(ids, l.ID)
		v.listByID[l.ID] = l
	}
	v.lists.Reset(ids...)
}

// LoadCards replaces a list's card order with its ACTIVE cards.
func (v *BoardView) LoadCards(listID int64, cards []models.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int64
	for _, c := range sortedCards(cards) {
		if c.Status != models.StatusActive {
			continue
		}
		ids = append(ids, c.ID)
		v.cardByID[c.ID] = c
	}
	v.cardSeq(listID).Reset(ids...)
}

func (v *BoardView) LoadSubtasks(cardID int64, subtasks []models.Subtask) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int64
	for _, s := range sortedSubtasks(subtasks) {
		if s.Status == models.StatusDeleted {
			continue
		}
		ids = append(ids, s.ID)
	}
	v.subtaskSeq(cardID).Reset(ids...)
}

func (v *BoardView) Lists() *Sequence { return v.lists }

// Cards returns the card order of a list, creating an empty one if the
// list was never loaded.
func (v *BoardView) Cards(listID int64) *Sequence {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cardSeq(listID)
}

func (v *BoardView) Subtasks(cardID int64) *Sequence {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subtaskSeq(cardID)
}

func (v *BoardView) List(id int64) (models.TaskList, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.listByID[id]
	return l, ok
}

func (v *BoardView) Card(id int64) (models.Card, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cardByID[id]
	return c, ok
}

// RemoveList applies a list removal from the long-poll feed. Repeats are
// ignored.
func (v *BoardView) RemoveList(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropList(id)
}

// Apply folds one broadcast into the view. Every placement uses the
// canonical index the server sent, so applying an event twice has the same
// effect as applying it once.
func (v *BoardView) Apply(ev Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Kind {
	case models.ListAdded, models.ListEdited, models.ListRelocated, models.ListTitleEdited:
		var l models.TaskList
		if err := decode(ev, &l); err != nil {
			return err
		}
		if l.BoardID != v.BoardID {
			return nil
		}
		if l.Status == models.StatusDeleted {
			v.dropList(l.ID)
			return nil
		}
		v.listByID[l.ID] = l
		v.lists.Place(l.ID, l.Index)

	case models.ListRemoved:
		var m models.Marker
		if err := decode(ev, &m); err != nil {
			return err
		}
		v.dropList(m.ID)

	case models.CardAdded, models.CardRelocated:
		var c models.Card
		if err := decode(ev, &c); err != nil {
			return err
		}
		// a move between lists is announced on both lists
		if c.ListID != ev.ParentID || c.Status != models.StatusActive {
			v.cardSeq(ev.ParentID).Remove(c.ID)
		}
		if c.Status == models.StatusActive {
			v.cardSeq(c.ListID).Place(c.ID, c.Index)
		}
		v.cardByID[c.ID] = c

	case models.CardRemoved:
		var m models.Marker
		if err := decode(ev, &m); err != nil {
			return err
		}
		v.cardSeq(ev.ParentID).Remove(m.ID)
		delete(v.cardByID, m.ID)
		delete(v.subtasks, m.ID)

	case models.CardEdited, models.CardColorChanged, models.SubtaskListCreated:
		var c models.Card
		if err := decode(ev, &c); err != nil {
			return err
		}
		if prev, ok := v.cardByID[c.ID]; ok {
			c.Index = prev.Index
		}
		v.cardByID[c.ID] = c

	case models.SubtaskAdded, models.SubtaskEdited, models.SubtaskRelocated:
		var s models.Subtask
		if err := decode(ev, &s); err != nil {
			return err
		}
		if s.Status == models.StatusDeleted {
			v.subtaskSeq(s.CardID).Remove(s.ID)
			return nil
		}
		v.subtaskSeq(s.CardID).Place(s.ID, s.Index)

	case models.SubtaskRemoved:
		var m models.Marker
		if err := decode(ev, &m); err != nil {
			return err
		}
		v.subtaskSeq(ev.ParentID).Remove(m.ID)

	default:
		// tags and board settings do not affect order
	}
	return nil
}

func (v *BoardView) dropList(id int64) {
	v.lists.Remove(id)
	delete(v.listByID, id)
	if cards, ok := v.cards[id]; ok {
		for _, cardID := range cards.IDs() {
			delete(v.cardByID, cardID)
			delete(v.subtasks, cardID)
		}
		delete(v.cards, id)
	}
}

func (v *BoardView) cardSeq(listID int64) *Sequence {
	seq, ok := v.cards[listID]
	if !ok {
		seq = NewSequence()
		v.cards[listID] = seq
	}
	return seq
}

func (v *BoardView) subtaskSeq(cardID int64) *Sequence {
	seq, ok := v.subtasks[cardID]
	if !ok {
		seq = NewSequence()
		v.subtasks[cardID] = seq
	}
	return seq
}

func decode(ev Event, target any) error {
	return ev.Decode(target)
}

func sortedLists(in []models.TaskList) []models.TaskList {
	out := append([]models.TaskList(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func sortedCards(in []models.Card) []models.Card {
	out := append([]models.Card(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func sortedSubtasks(in []models.Subtask) []models.Subtask {
	out := append([]models.Subtask(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
