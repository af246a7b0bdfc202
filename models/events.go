package models

import "fmt"

// EventKind names a notification channel independently of any transport.
// Together with a parent id it addresses exactly one channel.
type EventKind string

const (
	// board channels
	ListAdded            EventKind = "list.added"
	ListEdited           EventKind = "list.edited"
	ListRelocated        EventKind = "list.relocated"
	ListRemoved          EventKind = "list.removed"
	BoardRenamed         EventKind = "board.renamed"
	BoardPasswordChanged EventKind = "board.password"

	// list channels
	CardAdded       EventKind = "card.added"
	CardRelocated   EventKind = "card.relocated"
	CardRemoved     EventKind = "card.removed"
	ListTitleEdited EventKind = "list.title"

	// card channels
	CardEdited         EventKind = "card.edited"
	CardColorChanged   EventKind = "card.color"
	SubtaskListCreated EventKind = "subtask.list"
	SubtaskAdded       EventKind = "subtask.added"
	SubtaskEdited      EventKind = "subtask.edited"
	SubtaskRelocated   EventKind = "subtask.relocated"
	SubtaskRemoved     EventKind = "subtask.removed"
	TagAttached        EventKind = "tag.attached"
	TagDetached        EventKind = "tag.detached"
	TagEdited          EventKind = "tag.edited"
)

// Scope is the kind of parent a channel hangs off.
type Scope int

const (
	ScopeUnknown Scope = iota
	ScopeBoard
	ScopeList
	ScopeCard
)

func (s Scope) String() string {
	switch s {
	case ScopeBoard:
		return "board"
	case ScopeList:
		return "list"
	case ScopeCard:
		return "card"
	}
	return "unknown"
}

var kindScopes = map[EventKind]Scope{
	ListAdded:            ScopeBoard,
	ListEdited:           ScopeBoard,
	ListRelocated:        ScopeBoard,
	ListRemoved:          ScopeBoard,
	BoardRenamed:         ScopeBoard,
	BoardPasswordChanged: ScopeBoard,

	CardAdded:       ScopeList,
	CardRelocated:   ScopeList,
	CardRemoved:     ScopeList,
	ListTitleEdited: ScopeList,

	CardEdited:         ScopeCard,
	CardColorChanged:   ScopeCard,
	SubtaskListCreated: ScopeCard,
	SubtaskAdded:       ScopeCard,
	SubtaskEdited:      ScopeCard,
	SubtaskRelocated:   ScopeCard,
	SubtaskRemoved:     ScopeCard,
	TagAttached:        ScopeCard,
	TagDetached:        ScopeCard,
	TagEdited:          ScopeCard,
}

func (k EventKind) Scope() Scope {
	return kindScopes[k]
}

func (k EventKind) Valid() bool {
	_, ok := kindScopes[k]
	return ok
}

// KindsFor lists every event kind delivered on channels of the given scope.
func KindsFor(scope Scope) []EventKind {
	kinds := make([]EventKind, 0, 8)
	// iterate in declaration order for stable subscription order
	for _, k := range []EventKind{
		ListAdded, ListEdited, ListRelocated, ListRemoved, BoardRenamed, BoardPasswordChanged,
		CardAdded, CardRelocated, CardRemoved, ListTitleEdited,
		CardEdited, CardColorChanged, SubtaskListCreated, SubtaskAdded, SubtaskEdited,
		SubtaskRelocated, SubtaskRemoved, TagAttached, TagDetached, TagEdited,
	} {
		if k.Scope() == scope {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Channel is a (kind, parent) address.
type Channel struct {
	Kind     EventKind `json:"kind"`
	ParentID int64     `json:"parentId"`
}

func (c Channel) String() string {
	return fmt.Sprintf("%s/%d", c.Kind, c.ParentID)
}

// Event carries the canonical post-mutation entity to one channel.
type Event struct {
	Kind     EventKind `json:"kind"`
	ParentID int64     `json:"parentId"`
	Data     any       `json:"data"`
}

func (e Event) Channel() Channel {
	return Channel{Kind: e.Kind, ParentID: e.ParentID}
}
