package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
)

type TagRepo struct {
	r runner
}

const tagColumns = `id, board_id, name, color, status`

func scanTag(row rowScanner) (models.Tag, error) {
	var (
		t      models.Tag
		status string
	)
	if err := row.Scan(&t.ID, &t.BoardID, &t.Name, &t.Color, &status); err != nil {
		return models.Tag{}, err
	}
	t.Status = models.Status(status)
	return t, nil
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	out := make([]models.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

func (repo *TagRepo) Create(ctx context.Context, t models.Tag) (models.Tag, error) {
	if t.Status == "" {
		t.Status = models.StatusActive
	}
	id, err := repo.r.insert(ctx,
		`INSERT INTO tags (board_id, name, color, status) VALUES (?, ?, ?, ?)`,
		t.BoardID, t.Name, t.Color, string(t.Status))
	if err != nil {
		return models.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	t.ID = id
	return t, nil
}

func (repo *TagRepo) Get(ctx context.Context, id int64) (models.Tag, error) {
	t, err := scanTag(repo.r.queryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id))
	if err != nil {
		return models.Tag{}, notFound(err, "tag", id)
	}
	return t, nil
}

// ByBoard returns the board's tags that are not deleted.
func (repo *TagRepo) ByBoard(ctx context.Context, boardID int64) ([]models.Tag, error) {
	rows, err := repo.r.query(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE board_id = ? AND status <> ? ORDER BY id`,
		boardID, string(models.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// AvailableForCard returns the board's tags not yet attached to the card.
func (repo *TagRepo) AvailableForCard(ctx context.Context, boardID, cardID int64) ([]models.Tag, error) {
	rows, err := repo.r.query(ctx,
		`SELECT `+tagColumns+` FROM tags
		WHERE board_id = ? AND status <> ?
		AND id NOT IN (SELECT tag_id FROM card_tags WHERE card_id = ?)
		ORDER BY id`,
		boardID, string(models.StatusDeleted), cardID)
	if err != nil {
		return nil, fmt.Errorf("query available tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func (repo *TagRepo) UpdateFields(ctx context.Context, id int64, name, color string) error {
	return repo.r.execOne(ctx, "tag", id, `UPDATE tags SET name = ?, color = ? WHERE id = ?`, name, color, id)
}

func (repo *TagRepo) SetStatus(ctx context.Context, id int64, status models.Status) error {
	return repo.r.execOne(ctx, "tag", id, `UPDATE tags SET status = ? WHERE id = ?`, string(status), id)
}
