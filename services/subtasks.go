package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type SubtaskBlueprint struct {
	Title  string         `json:"title"`
	Status *models.Status `json:"status,omitempty"`
}

type SubtaskPatch struct {
	Title  *string        `json:"title,omitempty"`
	Status *models.Status `json:"status,omitempty"`
}

// SubtaskService orders the subtasks of a card and keeps the card's
// done/total counters in step. ACTIVE, PLANNED and DONE subtasks all take
// part in the ordering.
type SubtaskService struct {
	core
}

func NewSubtaskService(store *database.Store, locks *ordering.Locks, pub Publisher, log zerolog.Logger) *SubtaskService {
	return &SubtaskService{core{store: store, locks: locks, pub: pub, log: log}}
}

// doneDelta is the change to a card's done counter when a subtask goes
// from one status to another. The counter is the number of DONE subtasks,
// so leaving DONE for ACTIVE counts the same as leaving it for PLANNED.
func doneDelta(from, to models.Status) int {
	switch {
	case from != models.StatusDone && to == models.StatusDone:
		return 1
	case from == models.StatusDone && to != models.StatusDone:
		return -1
	}
	return 0
}

// CreateList gives a card an empty subtask list.
func (s *SubtaskService) CreateList(ctx context.Context, cardID int64) (models.Card, error) {
	unlock := s.locks.Lock(cardKey(cardID))
	defer unlock()

	var card models.Card
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		card, err = tx.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		if card.Status == models.StatusDeleted {
			return invalid("card %d is deleted", cardID)
		}
		opened, err := tx.Cards.OpenSubtaskList(ctx, cardID)
		if err != nil {
			return err
		}
		if !opened {
			return invalid("card %d already has a subtask list", cardID)
		}
		card.TotalSubtasks = 0
		card.DoneSubtasks = 0
		return nil
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("create subtask list for card %d: %w", cardID, err)
	}

	publishAll(ctx, s.pub,
		event(models.SubtaskListCreated, cardID, card),
		event(models.CardEdited, cardID, card))
	return card, nil
}

// Add inserts a subtask at index, or at the end when index is nil. New
// subtasks are PLANNED unless the blueprint says otherwise.
func (s *SubtaskService) Add(ctx context.Context, cardID int64, bp SubtaskBlueprint, index *int) (models.Subtask, error) {
	status, err := resolveStatus(bp.Status, models.StatusPlanned, database.SubtaskOrderStatuses...)
	if err != nil {
		return models.Subtask{}, err
	}

	unlock := s.locks.Lock(cardKey(cardID))
	defer unlock()

	var (
		created models.Subtask
		card    models.Card
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		card, err = tx.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		if card.Status == models.StatusDeleted {
			return invalid("card %d is deleted", cardID)
		}
		if !card.HasSubtaskList() {
			return invalid("card %d has no subtask list", cardID)
		}

		members, err := tx.Subtasks.Members(ctx, cardID)
		if err != nil {
			return err
		}
		plan, err := ordering.Insert(members, index)
		if err != nil {
			return err
		}
		if err := tx.Subtasks.Shift(ctx, plan.Shifts); err != nil {
			return err
		}
		created, err = tx.Subtasks.Create(ctx, models.Subtask{
			CardID: cardID,
			Title:  bp.Title,
			Index:  plan.Index,
			Status: status,
		})
		if err != nil {
			return err
		}

		done := doneDelta(models.StatusPlanned, status)
		if err := tx.Cards.AddCounters(ctx, cardID, done, 1); err != nil {
			return err
		}
		card.DoneSubtasks += done
		card.TotalSubtasks++
		return nil
	})
	if err != nil {
		return models.Subtask{}, fmt.Errorf("add subtask to card %d: %w", cardID, err)
	}

	publishAll(ctx, s.pub,
		event(models.SubtaskAdded, cardID, created),
		event(models.CardEdited, cardID, card))
	return created, nil
}

func (s *SubtaskService) Get(ctx context.Context, id int64) (models.Subtask, error) {
	return s.store.Subtasks.Get(ctx, id)
}

// ByCard returns the card's subtasks in order.
func (s *SubtaskService) ByCard(ctx context.Context, cardID int64) ([]models.Subtask, error) {
	if _, err := s.store.Cards.Get(ctx, cardID); err != nil {
		return nil, err
	}
	return s.store.Subtasks.ByCard(ctx, cardID)
}

// Edit renames a subtask or moves it between ACTIVE, PLANNED and DONE.
// Crossing into or out of DONE adjusts the card's done counter.
func (s *SubtaskService) Edit(ctx context.Context, id int64, patch SubtaskPatch) (models.Subtask, error) {
	current, err := s.store.Subtasks.Get(ctx, id)
	if err != nil {
		return models.Subtask{}, err
	}

	unlock := s.locks.Lock(cardKey(current.CardID))
	defer unlock()

	var (
		after models.Subtask
		card  models.Card
		delta int
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		before, err := tx.Subtasks.Get(ctx, id)
		if err != nil {
			return err
		}
		if before.Status == models.StatusDeleted {
			return invalid("subtask %d is deleted", id)
		}

		after = before
		if patch.Title != nil {
			after.Title = *patch.Title
		}
		if patch.Status != nil {
			status, err := resolveStatus(patch.Status, before.Status, database.SubtaskOrderStatuses...)
			if err != nil {
				return err
			}
			after.Status = status
		}
		if err := tx.Subtasks.UpdateFields(ctx, id, after.Title, after.Status); err != nil {
			return err
		}

		delta = doneDelta(before.Status, after.Status)
		if delta != 0 {
			if err := tx.Cards.AddCounters(ctx, before.CardID, delta, 0); err != nil {
				return err
			}
		}
		card, err = tx.Cards.Get(ctx, before.CardID)
		return err
	})
	if err != nil {
		return models.Subtask{}, fmt.Errorf("edit subtask %d: %w", id, err)
	}

	events := []models.Event{event(models.SubtaskEdited, after.CardID, after)}
	if delta != 0 {
		events = append(events, event(models.CardEdited, after.CardID, card))
	}
	publishAll(ctx, s.pub, events...)
	return after, nil
}

// Relocate reorders a subtask within its card.
func (s *SubtaskService) Relocate(ctx context.Context, id int64, index int) (models.Subtask, error) {
	current, err := s.store.Subtasks.Get(ctx, id)
	if err != nil {
		return models.Subtask{}, err
	}

	unlock := s.locks.Lock(cardKey(current.CardID))
	defer unlock()

	var moved models.Subtask
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		moved, err = tx.Subtasks.Get(ctx, id)
		if err != nil {
			return err
		}
		if moved.Status == models.StatusDeleted {
			return invalid("subtask %d is deleted and cannot be relocated", id)
		}

		members, err := tx.Subtasks.Members(ctx, moved.CardID)
		if err != nil {
			return err
		}
		plan, err := ordering.Reorder(members, id, index)
		if err != nil {
			return err
		}
		if err := tx.Subtasks.Shift(ctx, plan.Shifts); err != nil {
			return err
		}
		if err := tx.Subtasks.SetPlacement(ctx, id, moved.Status, plan.Index); err != nil {
			return err
		}
		moved.Index = plan.Index
		return nil
	})
	if err != nil {
		return models.Subtask{}, fmt.Errorf("relocate subtask %d: %w", id, err)
	}

	publishAll(ctx, s.pub, event(models.SubtaskRelocated, moved.CardID, moved))
	return moved, nil
}

// Remove soft-deletes a subtask, closes its gap and decrements the card's
// counters using the subtask's stored status. Removing twice is a no-op.
func (s *SubtaskService) Remove(ctx context.Context, id int64) (models.Subtask, error) {
	current, err := s.store.Subtasks.Get(ctx, id)
	if err != nil {
		return models.Subtask{}, err
	}

	unlock := s.locks.Lock(cardKey(current.CardID))
	defer unlock()

	var (
		removed models.Subtask
		card    models.Card
		changed bool
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		removed, err = tx.Subtasks.Get(ctx, id)
		if err != nil {
			return err
		}
		if removed.Status == models.StatusDeleted {
			return nil
		}

		members, err := tx.Subtasks.Members(ctx, removed.CardID)
		if err != nil {
			return err
		}
		plan, err := ordering.Remove(members, id)
		if err != nil {
			return err
		}
		if err := tx.Subtasks.Shift(ctx, plan.Shifts); err != nil {
			return err
		}
		if err := tx.Subtasks.SetPlacement(ctx, id, models.StatusDeleted, plan.Index); err != nil {
			return err
		}
		if err := tx.Cards.AddCounters(ctx, removed.CardID, doneDelta(removed.Status, models.StatusDeleted), -1); err != nil {
			return err
		}
		removed.Status = models.StatusDeleted
		removed.Index = plan.Index
		changed = true

		card, err = tx.Cards.Get(ctx, removed.CardID)
		return err
	})
	if err != nil {
		return models.Subtask{}, fmt.Errorf("remove subtask %d: %w", id, err)
	}

	if changed {
		publishAll(ctx, s.pub,
			event(models.SubtaskRemoved, removed.CardID, removed),
			event(models.CardEdited, removed.CardID, card))
	}
	return removed, nil
}
