package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type CardBlueprint struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       string         `json:"color"`
	Status      *models.Status `json:"status,omitempty"`
}

type CardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// Relocation asks to move a card. A nil ListID keeps the current list, a
// nil Index appends and a nil Status means ACTIVE. Status DELETED removes
// the card; the index, when given, must then be -1.
type Relocation struct {
	ListID *int64         `json:"listId,omitempty"`
	Index  *int           `json:"index,omitempty"`
	Status *models.Status `json:"status,omitempty"`
}

// CardService orders cards within a list. Only ACTIVE cards take part in
// a list's ordering; PLANNED, DONE and ARCHIVED cards carry index -1.
type CardService struct {
	core
}

func NewCardService(store *database.Store, locks *ordering.Locks, pub Publisher, log zerolog.Logger) *CardService {
	return &CardService{core{store: store, locks: locks, pub: pub, log: log}}
}

// Add creates a card in listID. ACTIVE cards are inserted at index (or
// appended); other statuses are stored outside the ordering.
func (s *CardService) Add(ctx context.Context, listID int64, bp CardBlueprint, createdBy string, index *int) (models.Card, error) {
	status, err := resolveStatus(bp.Status, models.StatusActive,
		models.StatusActive, models.StatusPlanned, models.StatusDone, models.StatusArchived)
	if err != nil {
		return models.Card{}, err
	}

	unlock := s.locks.Lock(listKey(listID))
	defer unlock()

	var created models.Card
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		list, err := tx.Lists.Get(ctx, listID)
		if err != nil {
			return err
		}
		if list.Status == models.StatusDeleted {
			return invalid("list %d is deleted", listID)
		}

		card := models.Card{
			ListID:        listID,
			Title:         bp.Title,
			Description:   bp.Description,
			Color:         bp.Color,
			CreatedBy:     createdBy,
			Index:         models.Unordered,
			TotalSubtasks: models.NoSubtaskList,
			Status:        status,
		}
		if status == models.StatusActive {
			members, err := tx.Cards.Members(ctx, listID)
			if err != nil {
				return err
			}
			plan, err := ordering.Insert(members, index)
			if err != nil {
				return err
			}
			if err := tx.Cards.Shift(ctx, plan.Shifts); err != nil {
				return err
			}
			card.Index = plan.Index
		}
		created, err = tx.Cards.Create(ctx, card)
		return err
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("add card to list %d: %w", listID, err)
	}

	s.log.Debug().Int64("list", listID).Int64("card", created.ID).Int("index", created.Index).Msg("card added")
	publishAll(ctx, s.pub, event(models.CardAdded, listID, created))
	return created, nil
}

func (s *CardService) Get(ctx context.Context, id int64) (models.Card, error) {
	return s.store.Cards.Get(ctx, id)
}

// ByList returns the list's cards in order. A nil status means every card
// that is not deleted.
func (s *CardService) ByList(ctx context.Context, listID int64, status *models.Status) ([]models.Card, error) {
	if _, err := s.store.Lists.Get(ctx, listID); err != nil {
		return nil, err
	}
	if status != nil {
		return s.store.Cards.ByList(ctx, listID, *status)
	}
	return s.store.Cards.ByList(ctx, listID)
}

// Edit rewrites title, description and color. The card's place is untouched.
func (s *CardService) Edit(ctx context.Context, id int64, patch CardPatch) (models.Card, error) {
	unlock := s.locks.Lock(cardKey(id))
	defer unlock()

	var before, after models.Card
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		before, err = tx.Cards.Get(ctx, id)
		if err != nil {
			return err
		}
		if before.Status == models.StatusDeleted {
			return invalid("card %d is deleted", id)
		}

		after = before
		if patch.Title != nil {
			after.Title = *patch.Title
		}
		if patch.Description != nil {
			after.Description = *patch.Description
		}
		if patch.Color != nil {
			after.Color = *patch.Color
		}
		return tx.Cards.UpdateFields(ctx, id, after.Title, after.Description, after.Color)
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("edit card %d: %w", id, err)
	}

	events := []models.Event{event(models.CardEdited, id, after)}
	if after.Color != before.Color {
		events = append(events, event(models.CardColorChanged, id, after))
	}
	publishAll(ctx, s.pub, events...)
	return after, nil
}

// Relocate moves a card within its list, to another list, or out of the
// ordering altogether when the requested status is DELETED.
func (s *CardService) Relocate(ctx context.Context, id int64, req Relocation) (models.Card, error) {
	status, err := resolveStatus(req.Status, models.StatusActive, models.StatusActive, models.StatusDeleted)
	if err != nil {
		return models.Card{}, err
	}
	if req.Index != nil {
		deleting := status == models.StatusDeleted
		if deleting != (*req.Index == models.Unordered) {
			return models.Card{}, invalid("status %s does not agree with index %d", status, *req.Index)
		}
		if *req.Index < models.Unordered {
			return models.Card{}, invalid("target index %d is negative", *req.Index)
		}
	}

	// Only a relocation changes a card's list, so holding the card key pins
	// the source list. Card keys sort before list keys, which keeps the
	// two-step acquisition in the same order as every other caller.
	unlockCard := s.locks.Lock(cardKey(id))
	defer unlockCard()

	current, err := s.store.Cards.Get(ctx, id)
	if err != nil {
		return models.Card{}, err
	}
	source := current.ListID
	dest := source
	if req.ListID != nil && status != models.StatusDeleted {
		dest = *req.ListID
	}

	unlock := s.locks.Lock(listKey(source), listKey(dest))
	defer unlock()

	var (
		moved   models.Card
		changed bool
	)
	err = s.store.WithTx(ctx, func(tx *database.Repos) error {
		card, err := tx.Cards.Get(ctx, id)
		if err != nil {
			return err
		}
		if card.ListID != source {
			return fmt.Errorf("card %d left list %d: %w", id, source, ordering.ErrConflictDuringReindex)
		}
		moved = card

		if card.Status == models.StatusDeleted {
			if status == models.StatusDeleted {
				return nil
			}
			return invalid("card %d is deleted and cannot be relocated", id)
		}

		if status == models.StatusDeleted {
			if card.Status == models.StatusActive {
				members, err := tx.Cards.Members(ctx, source)
				if err != nil {
					return err
				}
				plan, err := ordering.Remove(members, id)
				if err != nil {
					return err
				}
				if err := tx.Cards.Shift(ctx, plan.Shifts); err != nil {
					return err
				}
			}
			if err := tx.Cards.SetPlacement(ctx, id, source, models.StatusDeleted, models.Unordered); err != nil {
				return err
			}
			moved.Status = models.StatusDeleted
			moved.Index = models.Unordered
			changed = true
			return nil
		}

		destList, err := tx.Lists.Get(ctx, dest)
		if err != nil {
			return err
		}
		if destList.Status == models.StatusDeleted {
			return invalid("list %d is deleted", dest)
		}

		index, err := s.place(ctx, tx, card, dest, req.Index)
		if err != nil {
			return err
		}
		if err := tx.Cards.SetPlacement(ctx, id, dest, models.StatusActive, index); err != nil {
			return err
		}
		changed = card.ListID != dest || card.Index != index || card.Status != models.StatusActive
		moved.ListID = dest
		moved.Status = models.StatusActive
		moved.Index = index
		return nil
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("relocate card %d: %w", id, err)
	}
	if !changed {
		return moved, nil
	}

	s.log.Debug().Int64("card", id).Int64("from", source).Int64("to", moved.ListID).
		Int("index", moved.Index).Str("status", string(moved.Status)).Msg("card relocated")

	if moved.Status == models.StatusDeleted {
		publishAll(ctx, s.pub, event(models.CardRemoved, source, moved))
		return moved, nil
	}
	events := []models.Event{event(models.CardRelocated, source, moved)}
	if dest != source {
		events = append(events, event(models.CardRelocated, dest, moved))
	}
	publishAll(ctx, s.pub, events...)
	return moved, nil
}

// place writes the sibling shifts for putting card at target in dest and
// returns the card's new index.
func (s *CardService) place(ctx context.Context, tx *database.Repos, card models.Card, dest int64, target *int) (int, error) {
	destMembers, err := tx.Cards.Members(ctx, dest)
	if err != nil {
		return 0, err
	}

	// not currently ordered: a plain insert
	if card.Status != models.StatusActive {
		plan, err := ordering.Insert(destMembers, target)
		if err != nil {
			return 0, err
		}
		return plan.Index, tx.Cards.Shift(ctx, plan.Shifts)
	}

	if card.ListID == dest {
		to := len(destMembers) - 1
		if target != nil {
			to = *target
		}
		plan, err := ordering.Reorder(destMembers, card.ID, to)
		if err != nil {
			return 0, err
		}
		return plan.Index, tx.Cards.Shift(ctx, plan.Shifts)
	}

	sourceMembers, err := tx.Cards.Members(ctx, card.ListID)
	if err != nil {
		return 0, err
	}
	plan, err := ordering.Move(sourceMembers, destMembers, card.ID, target)
	if err != nil {
		return 0, err
	}
	if err := tx.Cards.Shift(ctx, plan.Source); err != nil {
		return 0, err
	}
	return plan.Index, tx.Cards.Shift(ctx, plan.Dest)
}

// Remove is Relocate with status DELETED.
func (s *CardService) Remove(ctx context.Context, id int64) (models.Card, error) {
	deleted := models.StatusDeleted
	return s.Relocate(ctx, id, Relocation{Status: &deleted})
}
