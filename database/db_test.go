package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedList(t *testing.T, s *Store) (models.Board, models.TaskList) {
	t.Helper()
	ctx := context.Background()
	b, err := s.Boards.Create(ctx, models.Board{Name: "Team"})
	require.NoError(t, err)
	l, err := s.Lists.Create(ctx, models.TaskList{BoardID: b.ID, Name: "To-Do", Status: models.StatusActive, Index: 0})
	require.NoError(t, err)
	return b, l
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, Postgres, dialectFor("postgres://u:p@localhost/db"))
	assert.Equal(t, Postgres, dialectFor("POSTGRESQL://localhost/db"))
	assert.Equal(t, SQLite, dialectFor("file:taskboard.db"))
	assert.Equal(t, SQLite, dialectFor(":memory:"))
}

func TestSQLiteDSN(t *testing.T) {
	dsn, memory := sqliteDSN(":memory:")
	assert.True(t, memory)
	assert.Equal(t, ":memory:?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dsn)

	dsn, memory = sqliteDSN("sqlite://file:board.db?cache=shared")
	assert.False(t, memory)
	assert.Equal(t, "file:board.db?cache=shared&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dsn)
}

func TestRebind(t *testing.T) {
	pg := runner{dialect: Postgres}
	assert.Equal(t, "UPDATE x SET a = $1 WHERE id = $2 AND idx = $3", pg.rebind("UPDATE x SET a = ? WHERE id = ? AND idx = ?"))

	lite := runner{dialect: SQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestBoardRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b, err := s.Boards.Create(ctx, models.Board{Name: "Roadmap", Color: "#fff"})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, models.StatusActive, b.Status)

	require.NoError(t, s.Boards.Rename(ctx, b.ID, "Roadmap 2"))
	require.NoError(t, s.Boards.SetPasswordHash(ctx, b.ID, "hash"))

	got, err := s.Boards.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap 2", got.Name)
	assert.True(t, got.HasPassword)

	all, err := s.Boards.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.Boards.Get(ctx, 999)
	require.ErrorIs(t, err, ordering.ErrNotFound)
	require.ErrorIs(t, s.Boards.Rename(ctx, 999, "x"), ordering.ErrNotFound)
}

func TestListMembersSkipDeleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b, first := seedList(t, s)

	second, err := s.Lists.Create(ctx, models.TaskList{BoardID: b.ID, Name: "Done", Status: models.StatusArchived, Index: 1})
	require.NoError(t, err)
	_, err = s.Lists.Create(ctx, models.TaskList{BoardID: b.ID, Name: "Gone", Status: models.StatusDeleted, Index: models.Unordered})
	require.NoError(t, err)

	members, err := s.Lists.Members(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Member{{ID: first.ID, Index: 0}, {ID: second.ID, Index: 1}}, members)

	archived, err := s.Lists.ByBoard(ctx, b.ID, models.StatusArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "Done", archived[0].Name)
}

func TestShiftDetectsConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, l := seedList(t, s)

	var ids []int64
	for i := 0; i < 3; i++ {
		c, err := s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "c", Index: i, Status: models.StatusActive, TotalSubtasks: models.NoSubtaskList})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	err := s.WithTx(ctx, func(tx *Repos) error {
		if err := tx.Cards.Shift(ctx, []ordering.Shift{{ID: ids[2], From: 2, To: 1}}); err != nil {
			return err
		}
		// ids[1] is at 1, not 5
		return tx.Cards.Shift(ctx, []ordering.Shift{{ID: ids[1], From: 5, To: 0}})
	})
	require.ErrorIs(t, err, ordering.ErrConflictDuringReindex)

	// the first shift was rolled back with the transaction
	c, err := s.Cards.Get(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, 2, c.Index)
}

func TestWithTxCommits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, l := seedList(t, s)

	var created models.Card
	err := s.WithTx(ctx, func(tx *Repos) error {
		var err error
		created, err = tx.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "a", Status: models.StatusActive, TotalSubtasks: models.NoSubtaskList})
		return err
	})
	require.NoError(t, err)

	got, err := s.Cards.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
}

func TestCardMembersOnlyActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, l := seedList(t, s)

	active, err := s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "a", Index: 0, Status: models.StatusActive, TotalSubtasks: -1})
	require.NoError(t, err)
	_, err = s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "p", Index: models.Unordered, Status: models.StatusPlanned, TotalSubtasks: -1})
	require.NoError(t, err)

	members, err := s.Cards.Members(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []ordering.Member{{ID: active.ID, Index: 0}}, members)

	all, err := s.Cards.ByList(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCardCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, l := seedList(t, s)

	c, err := s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "a", Status: models.StatusActive, TotalSubtasks: models.NoSubtaskList})
	require.NoError(t, err)

	opened, err := s.Cards.OpenSubtaskList(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, opened)

	opened, err = s.Cards.OpenSubtaskList(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, opened)

	require.NoError(t, s.Cards.AddCounters(ctx, c.ID, 1, 2))
	got, err := s.Cards.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DoneSubtasks)
	assert.Equal(t, 2, got.TotalSubtasks)
}

func TestCardTags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b, l := seedList(t, s)

	c, err := s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "a", Status: models.StatusActive, TotalSubtasks: -1})
	require.NoError(t, err)
	bug, err := s.Tags.Create(ctx, models.Tag{BoardID: b.ID, Name: "bug", Color: "red"})
	require.NoError(t, err)
	feat, err := s.Tags.Create(ctx, models.Tag{BoardID: b.ID, Name: "feature"})
	require.NoError(t, err)

	require.NoError(t, s.Cards.AttachTag(ctx, c.ID, bug.ID))
	require.NoError(t, s.Cards.AttachTag(ctx, c.ID, bug.ID))

	got, err := s.Cards.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "bug", got.Tags[0].Name)

	available, err := s.Tags.AvailableForCard(ctx, b.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, feat.ID, available[0].ID)

	ids, err := s.Cards.WithTag(ctx, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids)

	removed, err := s.Cards.DetachTag(ctx, c.ID, bug.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Cards.DetachTag(ctx, c.ID, bug.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSoftDeletedTagsHidden(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b, _ := seedList(t, s)

	tag, err := s.Tags.Create(ctx, models.Tag{BoardID: b.ID, Name: "old"})
	require.NoError(t, err)
	require.NoError(t, s.Tags.SetStatus(ctx, tag.ID, models.StatusDeleted))

	tags, err := s.Tags.ByBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSubtaskRepo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, l := seedList(t, s)

	c, err := s.Cards.Create(ctx, models.Card{ListID: l.ID, Title: "a", Status: models.StatusActive, TotalSubtasks: 0})
	require.NoError(t, err)

	for i, status := range []models.Status{models.StatusPlanned, models.StatusDone, models.StatusActive} {
		_, err := s.Subtasks.Create(ctx, models.Subtask{CardID: c.ID, Title: "s", Index: i, Status: status})
		require.NoError(t, err)
	}
	gone, err := s.Subtasks.Create(ctx, models.Subtask{CardID: c.ID, Title: "x", Index: models.Unordered, Status: models.StatusDeleted})
	require.NoError(t, err)

	members, err := s.Subtasks.Members(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, ordering.Validate(members))
	assert.Len(t, members, 3)

	list, err := s.Subtasks.ByCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = s.Subtasks.Get(ctx, gone.ID+100)
	assert.True(t, errors.Is(err, ordering.ErrNotFound))
}
