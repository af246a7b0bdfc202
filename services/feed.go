package services

import (
	"context"
	"sync"
	"time"

	"github.com/CrowderSoup/taskboard/models"
)

// Removal is one list removal notice handed to long-poll clients.
type Removal struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"boardId"`
	Seq     uint64 `json:"seq"`
}

// RemovalFeed buffers recent list removals per board. Each board numbers
// its removals from 1 so a poller can resume after the last seq it saw.
type RemovalFeed struct {
	mu       sync.Mutex
	boards   map[int64]*boardFeed
	capacity int
}

type boardFeed struct {
	seq   uint64
	items []Removal
	// closed and replaced on every new removal
	wake chan struct{}
}

func NewRemovalFeed(capacity int) *RemovalFeed {
	if capacity <= 0 {
		capacity = 64
	}
	return &RemovalFeed{boards: make(map[int64]*boardFeed), capacity: capacity}
}

// Publish records ListRemoved events and ignores everything else.
func (f *RemovalFeed) Publish(_ context.Context, ev models.Event) error {
	if ev.Kind != models.ListRemoved {
		return nil
	}
	switch l := ev.Data.(type) {
	case models.TaskList:
		f.Record(l.BoardID, l.ID)
	case *models.TaskList:
		f.Record(l.BoardID, l.ID)
	default:
		f.Record(ev.ParentID, 0)
	}
	return nil
}

// Record appends a removal and wakes every waiter on the board.
func (f *RemovalFeed) Record(boardID, listID int64) Removal {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := f.board(boardID)
	b.seq++
	r := Removal{ID: listID, BoardID: boardID, Seq: b.seq}
	b.items = append(b.items, r)
	if len(b.items) > f.capacity {
		b.items = b.items[len(b.items)-f.capacity:]
	}
	close(b.wake)
	b.wake = make(chan struct{})
	return r
}

// Wait returns the oldest buffered removal with a seq greater than after.
// If there is none it blocks until one arrives, the timeout passes or ctx
// is done. ok is false on timeout. A cursor ahead of the feed (from a
// previous server process) starts over from the oldest buffered removal.
func (f *RemovalFeed) Wait(ctx context.Context, boardID int64, after uint64, timeout time.Duration) (r Removal, ok bool, err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		f.mu.Lock()
		b := f.board(boardID)
		if after > b.seq {
			after = 0
		}
		for _, item := range b.items {
			if item.Seq > after {
				f.mu.Unlock()
				return item, true, nil
			}
		}
		wake := b.wake
		f.mu.Unlock()

		select {
		case <-wake:
		case <-timer.C:
			return Removal{}, false, nil
		case <-ctx.Done():
			return Removal{}, false, ctx.Err()
		}
	}
}

// Latest returns the board's current sequence number.
func (f *RemovalFeed) Latest(boardID int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.board(boardID).seq
}

func (f *RemovalFeed) board(id int64) *boardFeed {
	b, ok := f.boards[id]
	if !ok {
		b = &boardFeed{wake: make(chan struct{})}
		f.boards[id] = b
	}
	return b
}
