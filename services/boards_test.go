package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

func TestCreateBoardAddsDefaultLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "Sprint"})
	require.NoError(t, err)
	assert.False(t, board.HasPassword)

	lists, err := f.lists.ByBoard(ctx, board.ID, nil)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	for i, l := range lists {
		assert.Equal(t, DefaultLists[i], l.Name)
		assert.Equal(t, i, l.Index)
	}
}

func TestCreateBoardRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.boards.Create(context.Background(), BoardBlueprint{Name: "  "})
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)
}

func TestRenameBoardPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "Old"})
	require.NoError(t, err)

	renamed, err := f.boards.Rename(ctx, board.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)
	require.Len(t, f.pub.on(models.BoardRenamed, board.ID), 1)

	_, err = f.boards.Rename(ctx, 404, "x")
	require.ErrorIs(t, err, ordering.ErrNotFound)
}

func TestBoardPasswordAndUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "Secret", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, board.HasPassword)

	_, err = f.boards.Unlock(ctx, board.ID, "nope")
	require.ErrorIs(t, err, ErrUnauthorized)

	token, err := f.boards.Unlock(ctx, board.ID, "pw")
	require.NoError(t, err)
	require.NoError(t, f.auth.VerifyBoardToken(token, board.ID))

	cleared, err := f.boards.SetPassword(ctx, board.ID, "")
	require.NoError(t, err)
	assert.False(t, cleared.HasPassword)
	require.Len(t, f.pub.on(models.BoardPasswordChanged, board.ID), 1)
}

func TestAuthorizeChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := f.emptyList(t)
	card := f.addCards(t, open.ID, "open card")[0]
	require.NoError(t, f.boards.AuthorizeChannel(ctx, models.Channel{Kind: models.CardEdited, ParentID: card.ID}, ""))

	locked, err := f.boards.Create(ctx, BoardBlueprint{Name: "Locked", Password: "pw"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(ctx, locked.ID, nil)
	require.NoError(t, err)

	ch := models.Channel{Kind: models.CardAdded, ParentID: lists[0].ID}
	require.ErrorIs(t, f.boards.AuthorizeChannel(ctx, ch, ""), ErrUnauthorized)

	token, err := f.boards.Unlock(ctx, locked.ID, "pw")
	require.NoError(t, err)
	require.NoError(t, f.boards.AuthorizeChannel(ctx, ch, token))

	// a token for one board does not open another
	other, err := f.boards.Create(ctx, BoardBlueprint{Name: "Other", Password: "pw"})
	require.NoError(t, err)
	require.ErrorIs(t, f.boards.AuthorizeChannel(ctx, models.Channel{Kind: models.ListAdded, ParentID: other.ID}, token), ErrUnauthorized)

	require.ErrorIs(t, f.boards.AuthorizeChannel(ctx, models.Channel{Kind: models.CardAdded, ParentID: 999}, ""), ordering.ErrNotFound)
}
