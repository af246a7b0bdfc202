package client

import (
	"context"
	"fmt"
	"sync"
)

type DragState int

const (
	DragIdle DragState = iota
	DragDragging
	DragDropped
	DragCancelled
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "Idle"
	case DragDragging:
		return "Dragging"
	case DragDropped:
		return "Dropped"
	case DragCancelled:
		return "Cancelled"
	}
	return "InvalidState"
}

// Drop is where a dragged item was released.
type Drop struct {
	ItemID     int64
	FromParent int64
	FromIndex  int
	ToParent   int64
	ToIndex    int
}

// Mover sends a relocation to the server.
type Mover func(ctx context.Context, d Drop) error

// Drag follows one item through a drag gesture. The relocation is sent only
// when the item is dropped; cancelling leaves the server untouched.
type Drag struct {
	mu    sync.Mutex
	state DragState
	drop  Drop
	move  Mover
}

func NewDrag(move Mover) *Drag {
	return &Drag{move: move}
}

func (d *Drag) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Begin picks the item up. A finished drag may be started again.
func (d *Drag) Begin(itemID, parentID int64, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DragDragging {
		return fmt.Errorf("drag: item %d is already being dragged", d.drop.ItemID)
	}
	d.state = DragDragging
	d.drop = Drop{ItemID: itemID, FromParent: parentID, FromIndex: index}
	return nil
}

// Drop releases the item at index under parentID and sends the move. A
// drop back onto the starting slot sends nothing.
func (d *Drag) Drop(ctx context.Context, parentID int64, index int) (Drop, error) {
	d.mu.Lock()
	if d.state != DragDragging {
		state := d.state
		d.mu.Unlock()
		return Drop{}, fmt.Errorf("drag: cannot drop from state %s", state)
	}
	d.state = DragDropped
	d.drop.ToParent = parentID
	d.drop.ToIndex = index
	drop := d.drop
	d.mu.Unlock()

	if drop.ToParent == drop.FromParent && drop.ToIndex == drop.FromIndex {
		return drop, nil
	}
	if err := d.move(ctx, drop); err != nil {
		return drop, fmt.Errorf("drag: move item %d: %w", drop.ItemID, err)
	}
	return drop, nil
}

// Cancel abandons the drag.
func (d *Drag) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DragDragging {
		return fmt.Errorf("drag: cannot cancel from state %s", d.state)
	}
	d.state = DragCancelled
	return nil
}

// Reset returns a finished drag to Idle.
func (d *Drag) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DragDragging {
		d.state = DragIdle
		d.drop = Drop{}
	}
}
