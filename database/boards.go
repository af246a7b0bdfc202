package database

import (
	"context"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
)

type BoardRepo struct {
	r runner
}

const boardColumns = `id, name, status, color, password_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (models.Board, error) {
	var (
		b      models.Board
		status string
	)
	if err := row.Scan(&b.ID, &b.Name, &status, &b.Color, &b.PasswordHash); err != nil {
		return models.Board{}, err
	}
	b.Status = models.Status(status)
	b.HasPassword = b.PasswordHash != ""
	return b, nil
}

func (repo *BoardRepo) Create(ctx context.Context, b models.Board) (models.Board, error) {
	if b.Status == "" {
		b.Status = models.StatusActive
	}
	id, err := repo.r.insert(ctx,
		`INSERT INTO boards (name, status, color, password_hash) VALUES (?, ?, ?, ?)`,
		b.Name, string(b.Status), b.Color, b.PasswordHash)
	if err != nil {
		return models.Board{}, fmt.Errorf("insert board: %w", err)
	}
	b.ID = id
	b.HasPassword = b.PasswordHash != ""
	return b, nil
}

func (repo *BoardRepo) Get(ctx context.Context, id int64) (models.Board, error) {
	b, err := scanBoard(repo.r.queryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id))
	if err != nil {
		return models.Board{}, notFound(err, "board", id)
	}
	return b, nil
}

// List returns every board that is not deleted.
func (repo *BoardRepo) List(ctx context.Context) ([]models.Board, error) {
	rows, err := repo.r.query(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE status <> ? ORDER BY id`, string(models.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	out := make([]models.Board, 0)
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return out, nil
}

func (repo *BoardRepo) Rename(ctx context.Context, id int64, name string) error {
	return repo.r.execOne(ctx, "board", id, `UPDATE boards SET name = ? WHERE id = ?`, name, id)
}

// SetPasswordHash stores a bcrypt hash; an empty hash clears the password.
func (repo *BoardRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return repo.r.execOne(ctx, "board", id, `UPDATE boards SET password_hash = ? WHERE id = ?`, hash, id)
}
