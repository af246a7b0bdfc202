package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

func TestAppendThenRemoveCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)

	cards := f.addCards(t, list.ID, "C1", "C2", "C3")
	for i, c := range cards {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, models.NoSubtaskList, c.TotalSubtasks)
		assert.Equal(t, "tester", c.CreatedBy)
	}

	removed, err := f.cards.Remove(ctx, cards[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, removed.Status)
	assert.Equal(t, models.Unordered, removed.Index)
	assert.Equal(t, []string{"C1", "C3"}, f.order(t, list.ID))

	events := f.pub.on(models.CardRemoved, list.ID)
	require.Len(t, events, 1)
	assert.Equal(t, removed, events[0].Data)
}

func TestReorderCardWithinList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	cards := f.addCards(t, list.ID, "A", "B", "C", "D")

	moved, err := f.cards.Relocate(ctx, cards[3].ID, Relocation{Index: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Index)
	assert.Equal(t, []string{"A", "D", "B", "C"}, f.order(t, list.ID))

	// the relocated card is published once, on its list
	require.Len(t, f.pub.on(models.CardRelocated, list.ID), 1)
}

func TestRelocateCardAcrossLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "B"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(ctx, board.ID, nil)
	require.NoError(t, err)
	l1, l2 := lists[0], lists[1]

	src := f.addCards(t, l1.ID, "A", "B", "C")
	f.addCards(t, l2.ID, "X", "Y")

	moved, err := f.cards.Relocate(ctx, src[1].ID, Relocation{ListID: &l2.ID, Index: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, l2.ID, moved.ListID)
	assert.Equal(t, 0, moved.Index)

	assert.Equal(t, []string{"A", "C"}, f.order(t, l1.ID))
	assert.Equal(t, []string{"B", "X", "Y"}, f.order(t, l2.ID))

	assert.Len(t, f.pub.on(models.CardRelocated, l1.ID), 1)
	assert.Len(t, f.pub.on(models.CardRelocated, l2.ID), 1)
}

func TestRelocateClampsAndAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "B"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(ctx, board.ID, nil)
	require.NoError(t, err)
	l1, l2 := lists[0], lists[1]
	cards := f.addCards(t, l1.ID, "A", "B", "C")
	f.addCards(t, l2.ID, "X")

	moved, err := f.cards.Relocate(ctx, cards[0].ID, Relocation{Index: intp(99)})
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Index)
	assert.Equal(t, []string{"B", "C", "A"}, f.order(t, l1.ID))

	moved, err = f.cards.Relocate(ctx, cards[1].ID, Relocation{ListID: &l2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Index)
	assert.Equal(t, []string{"X", "B"}, f.order(t, l2.ID))
}

func TestRelocateDeletedCardWithIndexIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	cards := f.addCards(t, list.ID, "A", "B")

	_, err := f.cards.Relocate(ctx, cards[0].ID, Relocation{Status: statusp(models.StatusDeleted), Index: intp(1)})
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)

	_, err = f.cards.Relocate(ctx, cards[0].ID, Relocation{Index: intp(-1)})
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)

	_, err = f.cards.Relocate(ctx, cards[0].ID, Relocation{Index: intp(-2)})
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)

	// nothing moved
	assert.Equal(t, []string{"A", "B"}, f.order(t, list.ID))
	assert.Empty(t, f.pub.on(models.CardRelocated, list.ID))
}

func TestRelocateAlreadyDeletedCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	cards := f.addCards(t, list.ID, "A", "B")

	_, err := f.cards.Remove(ctx, cards[0].ID)
	require.NoError(t, err)

	_, err = f.cards.Relocate(ctx, cards[0].ID, Relocation{Index: intp(0)})
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)

	again, err := f.cards.Remove(ctx, cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, again.Status)
	assert.Len(t, f.pub.on(models.CardRemoved, list.ID), 1)
	assert.Equal(t, []string{"B"}, f.order(t, list.ID))
}

func TestDeleteWithExplicitUnorderedIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	cards := f.addCards(t, list.ID, "A", "B", "C")

	removed, err := f.cards.Relocate(ctx, cards[0].ID, Relocation{Status: statusp(models.StatusDeleted), Index: intp(-1)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, removed.Status)
	assert.Equal(t, []string{"B", "C"}, f.order(t, list.ID))
}

func TestPlannedCardsStayOutOfOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	f.addCards(t, list.ID, "A", "B")

	planned, err := f.cards.Add(ctx, list.ID, CardBlueprint{Title: "P", Status: statusp(models.StatusPlanned)}, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, models.Unordered, planned.Index)
	assert.Equal(t, []string{"A", "B"}, f.order(t, list.ID))

	filtered, err := f.cards.ByList(ctx, list.ID, statusp(models.StatusPlanned))
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	// activating inserts it
	activated, err := f.cards.Relocate(ctx, planned.ID, Relocation{Index: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, activated.Status)
	assert.Equal(t, []string{"P", "A", "B"}, f.order(t, list.ID))
}

func TestAddCardToMissingOrDeletedList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cards.Add(ctx, 12345, CardBlueprint{Title: "x"}, "", nil)
	require.ErrorIs(t, err, ordering.ErrNotFound)

	list := f.emptyList(t)
	_, err = f.lists.Remove(ctx, list.ID)
	require.NoError(t, err)
	_, err = f.cards.Add(ctx, list.ID, CardBlueprint{Title: "x"}, "", nil)
	require.ErrorIs(t, err, ordering.ErrInvalidOperation)
}

func TestEditCardPublishesColor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.emptyList(t)
	card := f.addCards(t, list.ID, "A")[0]

	edited, err := f.cards.Edit(ctx, card.ID, CardPatch{Description: strp("details"), Color: strp("red")})
	require.NoError(t, err)
	assert.Equal(t, "A", edited.Title)
	assert.Equal(t, "details", edited.Description)
	assert.Equal(t, card.Index, edited.Index)
	assert.Len(t, f.pub.on(models.CardEdited, card.ID), 1)
	assert.Len(t, f.pub.on(models.CardColorChanged, card.ID), 1)

	_, err = f.cards.Edit(ctx, 9999, CardPatch{Title: strp("x")})
	require.ErrorIs(t, err, ordering.ErrNotFound)
}

func TestConcurrentRelocationsKeepListContiguous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "B"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(ctx, board.ID, nil)
	require.NoError(t, err)

	titles := make([]string, 8)
	for i := range titles {
		titles[i] = fmt.Sprintf("c%d", i)
	}
	cards := f.addCards(t, lists[0].ID, titles...)

	var wg sync.WaitGroup
	for i, c := range cards {
		wg.Add(1)
		go func(i int, c models.Card) {
			defer wg.Done()
			req := Relocation{Index: intp((i * 3) % len(cards))}
			if i%3 == 0 {
				req.ListID = &lists[1].ID
			}
			_, err := f.cards.Relocate(ctx, c.ID, req)
			assert.NoError(t, err)
		}(i, c)
	}
	wg.Wait()

	for _, l := range lists {
		members, err := f.store.Cards.Members(ctx, l.ID)
		require.NoError(t, err)
		require.NoError(t, ordering.Validate(members))
	}
	left := f.order(t, lists[0].ID)
	right := f.order(t, lists[1].ID)
	assert.Len(t, append(left, right...), len(cards))
}

func TestConcurrentMovesOfOneCard(t *testing.T) {
	f := newFixtureAt(t, "file:"+filepath.Join(t.TempDir(), "board.db"), nil)
	ctx := context.Background()
	board, err := f.boards.Create(ctx, BoardBlueprint{Name: "B"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(ctx, board.ID, nil)
	require.NoError(t, err)
	left, right := lists[0], lists[1]

	f.addCards(t, left.ID, "a", "b")
	f.addCards(t, right.ID, "x", "y")
	card := f.addCards(t, left.ID, "moving")[0]

	const workers, rounds = 16, 4
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				dest := left.ID
				if (w+r)%2 == 1 {
					dest = right.ID
				}
				_, err := f.cards.Relocate(ctx, card.ID, Relocation{ListID: &dest, Index: intp(0)})
				assert.NoError(t, err, "worker %d round %d", w, r)
			}
		}(w)
	}
	wg.Wait()

	for _, l := range lists {
		members, err := f.store.Cards.Members(ctx, l.ID)
		require.NoError(t, err)
		require.NoError(t, ordering.Validate(members))
	}
	total := append(f.order(t, left.ID), f.order(t, right.ID)...)
	assert.ElementsMatch(t, []string{"a", "b", "x", "y", "moving"}, total)
}
