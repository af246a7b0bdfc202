package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type TagBlueprint struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type TagPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// TagService manages a board's tags and their attachment to cards. Tag
// changes are pushed to every card carrying the tag.
type TagService struct {
	core
}

func NewTagService(store *database.Store, locks *ordering.Locks, pub Publisher, log zerolog.Logger) *TagService {
	return &TagService{core{store: store, locks: locks, pub: pub, log: log}}
}

func (s *TagService) Create(ctx context.Context, boardID int64, bp TagBlueprint) (models.Tag, error) {
	if _, err := s.store.Boards.Get(ctx, boardID); err != nil {
		return models.Tag{}, err
	}
	return s.store.Tags.Create(ctx, models.Tag{BoardID: boardID, Name: bp.Name, Color: bp.Color})
}

func (s *TagService) ByBoard(ctx context.Context, boardID int64) ([]models.Tag, error) {
	if _, err := s.store.Boards.Get(ctx, boardID); err != nil {
		return nil, err
	}
	return s.store.Tags.ByBoard(ctx, boardID)
}

// Update edits a tag and notifies every card that carries it.
func (s *TagService) Update(ctx context.Context, id int64, patch TagPatch) (models.Tag, error) {
	var (
		tag   models.Tag
		cards []models.Card
	)
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		tag, err = tx.Tags.Get(ctx, id)
		if err != nil {
			return err
		}
		if tag.Status == models.StatusDeleted {
			return invalid("tag %d is deleted", id)
		}
		if patch.Name != nil {
			tag.Name = *patch.Name
		}
		if patch.Color != nil {
			tag.Color = *patch.Color
		}
		if err := tx.Tags.UpdateFields(ctx, id, tag.Name, tag.Color); err != nil {
			return err
		}
		cards, err = cardsWithTag(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Tag{}, fmt.Errorf("update tag %d: %w", id, err)
	}

	for _, card := range cards {
		publishAll(ctx, s.pub,
			event(models.TagEdited, card.ID, tag),
			event(models.CardEdited, card.ID, card))
	}
	return tag, nil
}

// Delete soft-deletes a tag; cards that carried it see it detached.
func (s *TagService) Delete(ctx context.Context, id int64) (models.Tag, error) {
	var (
		tag   models.Tag
		cards []models.Card
	)
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		tag, err = tx.Tags.Get(ctx, id)
		if err != nil {
			return err
		}
		if tag.Status == models.StatusDeleted {
			return nil
		}
		// collect the cards before the tag disappears from their tag sets
		ids, err := tx.Cards.WithTag(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Tags.SetStatus(ctx, id, models.StatusDeleted); err != nil {
			return err
		}
		tag.Status = models.StatusDeleted
		for _, cardID := range ids {
			card, err := tx.Cards.Get(ctx, cardID)
			if err != nil {
				return err
			}
			cards = append(cards, card)
		}
		return nil
	})
	if err != nil {
		return models.Tag{}, fmt.Errorf("delete tag %d: %w", id, err)
	}

	for _, card := range cards {
		publishAll(ctx, s.pub,
			event(models.TagDetached, card.ID, tag),
			event(models.CardEdited, card.ID, card))
	}
	return tag, nil
}

// AssignedToCard returns the tags attached to a card.
func (s *TagService) AssignedToCard(ctx context.Context, cardID int64) ([]models.Tag, error) {
	if _, err := s.store.Cards.Get(ctx, cardID); err != nil {
		return nil, err
	}
	return s.store.Cards.Tags(ctx, cardID)
}

// AvailableForCard returns the board's tags not yet attached to a card.
func (s *TagService) AvailableForCard(ctx context.Context, cardID int64) ([]models.Tag, error) {
	card, err := s.store.Cards.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.Lists.Get(ctx, card.ListID)
	if err != nil {
		return nil, err
	}
	return s.store.Tags.AvailableForCard(ctx, list.BoardID, cardID)
}

// Attach links a tag from the card's own board to the card.
func (s *TagService) Attach(ctx context.Context, cardID, tagID int64) (models.Card, error) {
	unlock := s.locks.Lock(cardKey(cardID))
	defer unlock()

	var (
		card models.Card
		tag  models.Tag
	)
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		card, tag, err = cardAndTag(ctx, tx, cardID, tagID)
		if err != nil {
			return err
		}
		if err := tx.Cards.AttachTag(ctx, cardID, tagID); err != nil {
			return err
		}
		card.Tags, err = tx.Cards.Tags(ctx, cardID)
		return err
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("attach tag %d to card %d: %w", tagID, cardID, err)
	}

	publishAll(ctx, s.pub,
		event(models.TagAttached, cardID, tag),
		event(models.CardEdited, cardID, card))
	return card, nil
}

// Detach unlinks a tag from a card. Detaching a tag the card does not
// carry is a no-op.
func (s *TagService) Detach(ctx context.Context, cardID, tagID int64) (models.Card, error) {
	unlock := s.locks.Lock(cardKey(cardID))
	defer unlock()

	var (
		card    models.Card
		tag     models.Tag
		removed bool
	)
	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		card, err = tx.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		tag, err = tx.Tags.Get(ctx, tagID)
		if err != nil {
			return err
		}
		removed, err = tx.Cards.DetachTag(ctx, cardID, tagID)
		if err != nil {
			return err
		}
		card.Tags, err = tx.Cards.Tags(ctx, cardID)
		return err
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("detach tag %d from card %d: %w", tagID, cardID, err)
	}

	if removed {
		publishAll(ctx, s.pub,
			event(models.TagDetached, cardID, tag),
			event(models.CardEdited, cardID, card))
	}
	return card, nil
}

func cardAndTag(ctx context.Context, tx *database.Repos, cardID, tagID int64) (models.Card, models.Tag, error) {
	card, err := tx.Cards.Get(ctx, cardID)
	if err != nil {
		return models.Card{}, models.Tag{}, err
	}
	if card.Status == models.StatusDeleted {
		return models.Card{}, models.Tag{}, invalid("card %d is deleted", cardID)
	}
	tag, err := tx.Tags.Get(ctx, tagID)
	if err != nil {
		return models.Card{}, models.Tag{}, err
	}
	if tag.Status == models.StatusDeleted {
		return models.Card{}, models.Tag{}, invalid("tag %d is deleted", tagID)
	}
	list, err := tx.Lists.Get(ctx, card.ListID)
	if err != nil {
		return models.Card{}, models.Tag{}, err
	}
	if list.BoardID != tag.BoardID {
		return models.Card{}, models.Tag{}, invalid("tag %d belongs to another board", tagID)
	}
	return card, tag, nil
}

func cardsWithTag(ctx context.Context, tx *database.Repos, tagID int64) ([]models.Card, error) {
	ids, err := tx.Cards.WithTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	cards := make([]models.Card, 0, len(ids))
	for _, id := range ids {
		card, err := tx.Cards.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}
