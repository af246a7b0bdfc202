package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/models"
)

func TestFeedReturnsBufferedRemoval(t *testing.T) {
	feed := NewRemovalFeed(8)
	first := feed.Record(1, 10)
	feed.Record(1, 11)

	r, ok, err := feed.Wait(context.Background(), 1, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, r)

	r, ok, err = feed.Wait(context.Background(), 1, first.Seq, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(11), r.ID)
}

func TestFeedTimesOut(t *testing.T) {
	feed := NewRemovalFeed(8)
	feed.Record(2, 99)

	start := time.Now()
	_, ok, err := feed.Wait(context.Background(), 1, 0, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFeedWakesWaiter(t *testing.T) {
	feed := NewRemovalFeed(8)
	after := feed.Latest(5)

	got := make(chan Removal, 1)
	go func() {
		r, ok, err := feed.Wait(context.Background(), 5, after, 5*time.Second)
		if err == nil && ok {
			got <- r
		}
		close(got)
	}()

	time.Sleep(20 * time.Millisecond)
	feed.Publish(context.Background(), models.Event{
		Kind:     models.ListRemoved,
		ParentID: 5,
		Data:     models.TaskList{ID: 77, BoardID: 5, Status: models.StatusDeleted, Index: models.Unordered},
	})

	select {
	case r, ok := <-got:
		require.True(t, ok)
		assert.Equal(t, int64(77), r.ID)
		assert.Equal(t, int64(5), r.BoardID)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestFeedIgnoresOtherEvents(t *testing.T) {
	feed := NewRemovalFeed(8)
	require.NoError(t, feed.Publish(context.Background(), models.Event{Kind: models.ListAdded, ParentID: 1}))
	assert.Zero(t, feed.Latest(1))
}

func TestFeedCancel(t *testing.T) {
	feed := NewRemovalFeed(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := feed.Wait(ctx, 1, 0, time.Second)
	assert.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFeedDropsOldestAndResetsStaleCursor(t *testing.T) {
	feed := NewRemovalFeed(2)
	feed.Record(1, 1)
	second := feed.Record(1, 2)
	feed.Record(1, 3)

	r, ok, err := feed.Wait(context.Background(), 1, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, r)

	// cursor from an earlier process
	r, ok, err = feed.Wait(context.Background(), 1, 1000, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, r)
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	fan := NewFanout(zerolog.Nop(), a)
	fan.Add(b)

	ev := models.Event{Kind: models.CardAdded, ParentID: 3}
	require.NoError(t, fan.Publish(context.Background(), ev))
	assert.Equal(t, []models.EventKind{models.CardAdded}, a.kinds())
	assert.Equal(t, []models.EventKind{models.CardAdded}, b.kinds())
}
