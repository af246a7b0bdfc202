package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type ListBlueprint struct {
	Name   string         `json:"name"`
	Color  string         `json:"color"`
	Status *models.Status `json:"status,omitempty"`
}

// ListPatch carries a partial edit; nil fields keep their stored value.
type ListPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Index *int    `json:"index,omitempty"`
}

// ListService orders lists within a board. Every status except DELETED
// takes part in a board's ordering.
type ListService struct {
	core
}

func NewListService(store *database.Store, locks *ordering.Locks, pub Publisher, log zerolog.Logger) *ListService {
	return &ListService{core{store: store, locks: locks, pub: pub, log: log}}
}

// Add inserts a list into the board at index, or at the end when index is nil.
func (s *ListService) Add(ctx context.Context, boardID int64, bp ListBlueprint, index *int) (models.TaskList, error) {
	status, err := resolveStatus(bp.Status, models.StatusActive, database.ListOrderStatuses...)
	if err != nil {
		return models.TaskList{}, err
	}

	unlock := s.locks.Lock(boardKey(boardID))
	defer unlock()

	var created models.TaskList
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		if _, err := tx.Boards.Get(ctx, boardID); err != nil {
			return err
		}
		members, err := tx.Lists.Members(ctx, boardID)
		if err != nil {
			return err
		}
		plan, err := ordering.Insert(members, index)
		if err != nil {
			return err
		}
		if err := tx.Lists.Shift(ctx, plan.Shifts); err != nil {
			return err
		}
		created, err = tx.Lists.Create(ctx, models.TaskList{
			BoardID: boardID,
			Name:    bp.Name,
			Status:  status,
			Color:   bp.Color,
			Index:   plan.Index,
		})
		return err
	})
	if err != nil {
		return models.TaskList{}, fmt.Errorf("add list to board %d: %w", boardID, err)
	}

	s.log.Debug().Int64("board", boardID).Int64("list", created.ID).Int("index", created.Index).Msg("list added")
	publishAll(ctx, s.pub, event(models.ListAdded, boardID, created))
	return created, nil
}

func (s *ListService) Get(ctx context.Context, id int64) (models.TaskList, error) {
	return s.store.Lists.Get(ctx, id)
}

// ByBoard returns the board's lists in order. A nil status means every
// list that is not deleted.
func (s *ListService) ByBoard(ctx context.Context, boardID int64, status *models.Status) ([]models.TaskList, error) {
	if _, err := s.store.Boards.Get(ctx, boardID); err != nil {
		return nil, err
	}
	if status != nil {
		return s.store.Lists.ByBoard(ctx, boardID, *status)
	}
	return s.store.Lists.ByBoard(ctx, boardID)
}

// Edit applies a partial update. A new index reorders the list within its
// board; name and color are rewritten in place.
func (s *ListService) Edit(ctx context.Context, id int64, patch ListPatch) (models.TaskList, error) {
	current, err := s.store.Lists.Get(ctx, id)
	if err != nil {
		return models.TaskList{}, err
	}

	unlock := s.locks.Lock(boardKey(current.BoardID))
	defer unlock()

	var (
		before, after models.TaskList
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		before, err = tx.Lists.Get(ctx, id)
		if err != nil {
			return err
		}
		if before.Status == models.StatusDeleted {
			return invalid("list %d is deleted", id)
		}

		after = before
		if patch.Name != nil {
			after.Name = *patch.Name
		}
		if patch.Color != nil {
			after.Color = *patch.Color
		}
		if after.Name != before.Name || after.Color != before.Color {
			if err := tx.Lists.UpdateFields(ctx, id, after.Name, after.Color); err != nil {
				return err
			}
		}

		if patch.Index != nil {
			members, err := tx.Lists.Members(ctx, before.BoardID)
			if err != nil {
				return err
			}
			plan, err := ordering.Reorder(members, id, *patch.Index)
			if err != nil {
				return err
			}
			if err := tx.Lists.Shift(ctx, plan.Shifts); err != nil {
				return err
			}
			if plan.Index != before.Index {
				if err := tx.Lists.SetPlacement(ctx, id, before.Status, plan.Index); err != nil {
					return err
				}
			}
			after.Index = plan.Index
		}
		return nil
	})
	if err != nil {
		return models.TaskList{}, fmt.Errorf("edit list %d: %w", id, err)
	}

	var events []models.Event
	if after.Name != before.Name || after.Color != before.Color {
		events = append(events, event(models.ListEdited, after.BoardID, after))
	}
	if after.Name != before.Name {
		events = append(events, event(models.ListTitleEdited, after.ID, after))
	}
	if after.Index != before.Index {
		events = append(events, event(models.ListRelocated, after.BoardID, after))
	}
	publishAll(ctx, s.pub, events...)
	return after, nil
}

// Remove soft-deletes the list and closes the gap it leaves. Removing a
// list twice is a no-op.
func (s *ListService) Remove(ctx context.Context, id int64) (models.TaskList, error) {
	current, err := s.store.Lists.Get(ctx, id)
	if err != nil {
		return models.TaskList{}, err
	}

	unlock := s.locks.Lock(boardKey(current.BoardID))
	defer unlock()

	var (
		removed models.TaskList
		changed bool
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		removed, err = tx.Lists.Get(ctx, id)
		if err != nil {
			return err
		}
		if removed.Status == models.StatusDeleted {
			return nil
		}

		members, err := tx.Lists.Members(ctx, removed.BoardID)
		if err != nil {
			return err
		}
		plan, err := ordering.Remove(members, id)
		if err != nil {
			return err
		}
		if err := tx.Lists.Shift(ctx, plan.Shifts); err != nil {
			return err
		}
		if err := tx.Lists.SetPlacement(ctx, id, models.StatusDeleted, plan.Index); err != nil {
			return err
		}
		removed.Status = models.StatusDeleted
		removed.Index = plan.Index
		changed = true
		return nil
	})
	if err != nil {
		return models.TaskList{}, fmt.Errorf("remove list %d: %w", id, err)
	}

	if changed {
		s.log.Debug().Int64("board", removed.BoardID).Int64("list", id).Msg("list removed")
		publishAll(ctx, s.pub, event(models.ListRemoved, removed.BoardID, removed))
	}
	return removed, nil
}
