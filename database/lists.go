package database

import (
	"context"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

type ListRepo struct {
	r   runner
	seq orderedTable
}

const listColumns = `id, board_id, name, status, color, idx`

func scanList(row rowScanner) (models.TaskList, error) {
	var (
		l      models.TaskList
		status string
	)
	if err := row.Scan(&l.ID, &l.BoardID, &l.Name, &status, &l.Color, &l.Index); err != nil {
		return models.TaskList{}, err
	}
	l.Status = models.Status(status)
	return l, nil
}

// Create stores l as given; the caller has already picked its index.
func (repo *ListRepo) Create(ctx context.Context, l models.TaskList) (models.TaskList, error) {
	id, err := repo.r.insert(ctx,
		`INSERT INTO lists (board_id, name, status, color, idx) VALUES (?, ?, ?, ?, ?)`,
		l.BoardID, l.Name, string(l.Status), l.Color, l.Index)
	if err != nil {
		return models.TaskList{}, fmt.Errorf("insert list: %w", err)
	}
	l.ID = id
	return l, nil
}

func (repo *ListRepo) Get(ctx context.Context, id int64) (models.TaskList, error) {
	l, err := scanList(repo.r.queryRow(ctx, `SELECT `+listColumns+` FROM lists WHERE id = ?`, id))
	if err != nil {
		return models.TaskList{}, notFound(err, "list", id)
	}
	return l, nil
}

// ByBoard returns the board's lists ordered by index. With no statuses it
// returns every list that is not deleted.
func (repo *ListRepo) ByBoard(ctx context.Context, boardID int64, statuses ...models.Status) ([]models.TaskList, error) {
	if len(statuses) == 0 {
		statuses = notDeleted
	}
	args := append([]any{boardID}, statusArgs(statuses)...)
	rows, err := repo.r.query(ctx,
		`SELECT `+listColumns+` FROM lists WHERE board_id = ? AND status IN (`+placeholders(len(statuses))+`) ORDER BY idx, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	out := make([]models.TaskList, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return out, nil
}

// Members returns the board's ordered lists.
func (repo *ListRepo) Members(ctx context.Context, boardID int64) ([]ordering.Member, error) {
	return repo.seq.members(ctx, repo.r, boardID, ListOrderStatuses)
}

func (repo *ListRepo) Shift(ctx context.Context, shifts []ordering.Shift) error {
	return repo.seq.shift(ctx, repo.r, shifts)
}

// UpdateFields rewrites the editable fields that do not affect ordering.
func (repo *ListRepo) UpdateFields(ctx context.Context, id int64, name, color string) error {
	return repo.r.execOne(ctx, "list", id, `UPDATE lists SET name = ?, color = ? WHERE id = ?`, name, color, id)
}

func (repo *ListRepo) SetPlacement(ctx context.Context, id int64, status models.Status, index int) error {
	return repo.r.execOne(ctx, "list", id, `UPDATE lists SET status = ?, idx = ? WHERE id = ?`, string(status), index, id)
}
