package database

import (
	"context"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type SubtaskRepo struct {
	r   runner
	seq orderedTable
}

const subtaskColumns = `id, card_id, title, idx, status`

func scanSubtask(row rowScanner) (models.Subtask, error) {
	var (
		s      models.Subtask
		status string
	)
	if err := row.Scan(&s.ID, &s.CardID, &s.Title, &s.Index, &status); err != nil {
		return models.Subtask{}, err
	}
	s.Status = models.Status(status)
	return s, nil
}

func (repo *SubtaskRepo) Create(ctx context.Context, s models.Subtask) (models.Subtask, error) {
	id, err := repo.r.insert(ctx,
		`INSERT INTO subtasks (card_id, title, idx, status) VALUES (?, ?, ?, ?)`,
		s.CardID, s.Title, s.Index, string(s.Status))
	if err != nil {
		return models.Subtask{}, fmt.Errorf("insert subtask: %w", err)
	}
	s.ID = id
	return s, nil
}

func (repo *SubtaskRepo) Get(ctx context.Context, id int64) (models.Subtask, error) {
	s, err := scanSubtask(repo.r.queryRow(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id))
	if err != nil {
		return models.Subtask{}, notFound(err, "subtask", id)
	}
	return s, nil
}

// ByCard returns the card's subtasks that are not deleted, ordered by index.
func (repo *SubtaskRepo) ByCard(ctx context.Context, cardID int64) ([]models.Subtask, error) {
	args := append([]any{cardID}, statusArgs(SubtaskOrderStatuses)...)
	rows, err := repo.r.query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE card_id = ? AND status IN (`+placeholders(len(SubtaskOrderStatuses))+`) ORDER BY idx, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Subtask, 0)
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtasks: %w", err)
	}
	return out, nil
}

func (repo *SubtaskRepo) Members(ctx context.Context, cardID int64) ([]ordering.Member, error) {
	return repo.seq.members(ctx, repo.r, cardID, SubtaskOrderStatuses)
}

func (repo *SubtaskRepo) Shift(ctx context.Context, shifts []ordering.Shift) error {
	return repo.seq.shift(ctx, repo.r, shifts)
}

func (repo *SubtaskRepo) UpdateFields(ctx context.Context, id int64, title string, status models.Status) error {
	return repo.r.execOne(ctx, "subtask", id,
		`UPDATE subtasks SET title = ?, status = ? WHERE id = ?`, title, string(status), id)
}

func (repo *SubtaskRepo) SetPlacement(ctx context.Context, id int64, status models.Status, index int) error {
	return repo.r.execOne(ctx, "subtask", id,
		`UPDATE subtasks SET status = ?, idx = ? WHERE id = ?`, string(status), index, id)
}
