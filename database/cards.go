package database

import (
	"context"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type CardRepo struct {
	r   runner
	seq orderedTable
}

const cardColumns = `id, list_id, title, description, color, created_by, idx, done_subtasks, total_subtasks, status`

func scanCard(row rowScanner) (models.Card, error) {
	var (
		c      models.Card
		status string
	)
	err := row.Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.Color, &c.CreatedBy,
		&c.Index, &c.DoneSubtasks, &c.TotalSubtasks, &status)
	if err != nil {
		return models.Card{}, err
	}
	c.Status = models.Status(status)
	return c, nil
}

func (repo *CardRepo) Create(ctx context.Context, c models.Card) (models.Card, error) {
	id, err := repo.r.insert(ctx,
		`INSERT INTO cards (list_id, title, description, color, created_by, idx, done_subtasks, total_subtasks, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ListID, c.Title, c.Description, c.Color, c.CreatedBy, c.Index, c.DoneSubtasks, c.TotalSubtasks, string(c.Status))
	if err != nil {
		return models.Card{}, fmt.Errorf("insert card: %w", err)
	}
	c.ID = id
	return c, nil
}

// Get returns the card with its attached, non-deleted tags.
func (repo *CardRepo) Get(ctx context.Context, id int64) (models.Card, error) {
	c, err := scanCard(repo.r.queryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		return models.Card{}, notFound(err, "card", id)
	}
	if c.Tags, err = repo.Tags(ctx, id); err != nil {
		return models.Card{}, err
	}
	return c, nil
}

// ByList returns the list's cards ordered by index. With no statuses it
// returns every card that is not deleted.
func (repo *CardRepo) ByList(ctx context.Context, listID int64, statuses ...models.Status) ([]models.Card, error) {
	if len(statuses) == 0 {
		statuses = notDeleted
	}
	args := append([]any{listID}, statusArgs(statuses)...)
	rows, err := repo.r.query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE list_id = ? AND status IN (`+placeholders(len(statuses))+`) ORDER BY idx, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	out := make([]models.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	rows.Close()

	for i := range out {
		if out[i].Tags, err = repo.Tags(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Members returns the list's ordered (ACTIVE) cards.
func (repo *CardRepo) Members(ctx context.Context, listID int64) ([]ordering.Member, error) {
	return repo.seq.members(ctx, repo.r, listID, CardOrderStatuses)
}

func (repo *CardRepo) Shift(ctx context.Context, shifts []ordering.Shift) error {
	return repo.seq.shift(ctx, repo.r, shifts)
}

func (repo *CardRepo) UpdateFields(ctx context.Context, id int64, title, description, color string) error {
	return repo.r.execOne(ctx, "card", id,
		`UPDATE cards SET title = ?, description = ?, color = ? WHERE id = ?`, title, description, color, id)
}

// SetPlacement moves the card to listID with the given status and index.
func (repo *CardRepo) SetPlacement(ctx context.Context, id, listID int64, status models.Status, index int) error {
	return repo.r.execOne(ctx, "card", id,
		`UPDATE cards SET list_id = ?, status = ?, idx = ? WHERE id = ?`, listID, string(status), index, id)
}

// AddCounters adjusts the denormalized subtask counters in place.
func (repo *CardRepo) AddCounters(ctx context.Context, id int64, done, total int) error {
	return repo.r.execOne(ctx, "card", id,
		`UPDATE cards SET done_subtasks = done_subtasks + ?, total_subtasks = total_subtasks + ? WHERE id = ?`,
		done, total, id)
}

// OpenSubtaskList turns the "no subtask list" sentinel into an empty list.
// It reports false when the card already had one.
func (repo *CardRepo) OpenSubtaskList(ctx context.Context, id int64) (bool, error) {
	res, err := repo.r.exec(ctx,
		`UPDATE cards SET total_subtasks = 0, done_subtasks = 0 WHERE id = ? AND total_subtasks = ?`,
		id, models.NoSubtaskList)
	if err != nil {
		return false, fmt.Errorf("open subtask list for card %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("open subtask list for card %d: %w", id, err)
	}
	return n == 1, nil
}

// Tags returns the card's attached tags that are not deleted.
func (repo *CardRepo) Tags(ctx context.Context, cardID int64) ([]models.Tag, error) {
	rows, err := repo.r.query(ctx,
		`SELECT t.id, t.board_id, t.name, t.color, t.status
		FROM tags t JOIN card_tags ct ON ct.tag_id = t.id
		WHERE ct.card_id = ? AND t.status <> ?
		ORDER BY t.id`, cardID, string(models.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("query card tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// AttachTag links a tag to a card. Attaching twice is a no-op.
func (repo *CardRepo) AttachTag(ctx context.Context, cardID, tagID int64) error {
	_, err := repo.r.exec(ctx,
		`INSERT INTO card_tags (card_id, tag_id) VALUES (?, ?) ON CONFLICT (card_id, tag_id) DO NOTHING`,
		cardID, tagID)
	if err != nil {
		return fmt.Errorf("attach tag %d to card %d: %w", tagID, cardID, err)
	}
	return nil
}

// DetachTag reports whether a link was removed.
func (repo *CardRepo) DetachTag(ctx context.Context, cardID, tagID int64) (bool, error) {
	res, err := repo.r.exec(ctx, `DELETE FROM card_tags WHERE card_id = ? AND tag_id = ?`, cardID, tagID)
	if err != nil {
		return false, fmt.Errorf("detach tag %d from card %d: %w", tagID, cardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("detach tag %d from card %d: %w", tagID, cardID, err)
	}
	return n > 0, nil
}

// WithTag returns the ids of the non-deleted cards carrying a tag.
func (repo *CardRepo) WithTag(ctx context.Context, tagID int64) ([]int64, error) {
	rows, err := repo.r.query(ctx,
		`SELECT c.id FROM cards c JOIN card_tags ct ON ct.card_id = c.id
		WHERE ct.tag_id = ? AND c.status <> ? ORDER BY c.id`, tagID, string(models.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("query cards with tag: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
