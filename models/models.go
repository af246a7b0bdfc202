// Package models holds the entities shared by the server and the client
// library: boards own lists, lists own cards, cards own subtasks.
package models

import (
	"fmt"
	"strings"
)

// Unordered is the index carried by an item that is excluded from its
// parent's ordering, e.g. a deleted card.
const Unordered = -1

// NoSubtaskList marks a card that never had a subtask list created.
const NoSubtaskList = -1

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPlanned  Status = "PLANNED"
	StatusDone     Status = "DONE"
	StatusArchived Status = "ARCHIVED"
	StatusDeleted  Status = "DELETED"
)

var allStatuses = []Status{StatusActive, StatusPlanned, StatusDone, StatusArchived, StatusDeleted}

// ParseStatus looks a status up by name, ignoring case.
func ParseStatus(name string) (Status, error) {
	for _, s := range allStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", name)
}

func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Board struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Color       string `json:"color,omitempty"`
	HasPassword bool   `json:"hasPassword"`

	// PasswordHash never leaves the server.
	PasswordHash string `json:"-"`
}

// TaskList is a column on a board.
type TaskList struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"boardId"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Color   string `json:"color,omitempty"`
	Index   int    `json:"index"`
}

type Card struct {
	ID            int64  `json:"id"`
	ListID        int64  `json:"listId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Color         string `json:"color,omitempty"`
	CreatedBy     string `json:"createdBy,omitempty"`
	Index         int    `json:"index"`
	DoneSubtasks  int    `json:"doneSubtasks"`
	TotalSubtasks int    `json:"totalSubtasks"`
	Status        Status `json:"status"`
	Tags          []Tag  `json:"tags,omitempty"`
}

// HasSubtaskList reports whether the card's subtask list was created.
func (c Card) HasSubtaskList() bool {
	return c.TotalSubtasks != NoSubtaskList
}

type Subtask struct {
	ID     int64  `json:"id"`
	CardID int64  `json:"cardId"`
	Title  string `json:"title"`
	Index  int    `json:"index"`
	Status Status `json:"status"`
}

type Tag struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"boardId"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Status  Status `json:"status"`
}

// Marker is the id-only payload used for removal notices.
type Marker struct {
	ID int64 `json:"id"`
}
