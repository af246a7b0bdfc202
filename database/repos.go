package database

import (
	"context"
	"fmt"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

// Repos groups the per-entity repositories bound to one connection or
// transaction.
type Repos struct {
	Boards   *BoardRepo
	Lists    *ListRepo
	Cards    *CardRepo
	Subtasks *SubtaskRepo
	Tags     *TagRepo
}

func newRepos(r runner) *Repos {
	return &Repos{
		Boards:   &BoardRepo{r: r},
		Lists:    &ListRepo{r: r, seq: orderedTable{table: "lists", parent: "board_id"}},
		Cards:    &CardRepo{r: r, seq: orderedTable{table: "cards", parent: "list_id"}},
		Subtasks: &SubtaskRepo{r: r, seq: orderedTable{table: "subtasks", parent: "card_id"}},
		Tags:     &TagRepo{r: r},
	}
}

// orderedTable is a child table whose rows carry an idx column scoped to a
// parent column.
type orderedTable struct {
	table  string
	parent string
}

// members loads the ordered children of parentID whose status is one of
// statuses.
func (t orderedTable) members(ctx context.Context, r runner, parentID int64, statuses []models.Status) ([]ordering.Member, error) {
	args := make([]any, 0, len(statuses)+1)
	args = append(args, parentID)
	for _, s := range statuses {
		args = append(args, string(s))
	}

	rows, err := r.query(ctx, fmt.Sprintf(
		`SELECT id, idx FROM %s WHERE %s = ? AND status IN (%s) ORDER BY idx, id`,
		t.table, t.parent, placeholders(len(statuses))), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s members: %w", t.table, err)
	}
	defer rows.Close()

	var out []ordering.Member
	for rows.Next() {
		var m ordering.Member
		if err := rows.Scan(&m.ID, &m.Index); err != nil {
			return nil, fmt.Errorf("scan %s member: %w", t.table, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s members: %w", t.table, err)
	}
	return out, nil
}

// shift writes each sibling rewrite as its own conditional update. A row
// whose idx no longer matches the planned From value means someone else
// reindexed the parent in between.
func (t orderedTable) shift(ctx context.Context, r runner, shifts []ordering.Shift) error {
	query := fmt.Sprintf(`UPDATE %s SET idx = ? WHERE id = ? AND idx = ?`, t.table)
	for _, s := range shifts {
		res, err := r.exec(ctx, query, s.To, s.ID, s.From)
		if err != nil {
			return fmt.Errorf("shift %s %d: %w", t.table, s.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("shift %s %d: %w", t.table, s.ID, err)
		}
		if n != 1 {
			return fmt.Errorf("%s %d moved from index %d: %w", t.table, s.ID, s.From, ordering.ErrConflictDuringReindex)
		}
	}
	return nil
}

func statusArgs(statuses []models.Status) []any {
	out := make([]any, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Visible statuses per entity. Lists and subtasks count every status but
// DELETED; cards only count ACTIVE.
var (
	ListOrderStatuses    = []models.Status{models.StatusActive, models.StatusPlanned, models.StatusDone, models.StatusArchived}
	CardOrderStatuses    = []models.Status{models.StatusActive}
	SubtaskOrderStatuses = []models.Status{models.StatusActive, models.StatusPlanned, models.StatusDone}
	notDeleted           = []models.Status{models.StatusActive, models.StatusPlanned, models.StatusDone, models.StatusArchived}
)
