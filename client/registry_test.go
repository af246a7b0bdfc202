package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/models"
)

type fakeSubscriber struct {
	active map[models.Channel]string
	fail   error
	// failAfter lets that many Subscribe calls succeed before fail applies.
	failAfter int
	calls     int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{active: make(map[models.Channel]string)}
}

func (f *fakeSubscriber) Subscribe(ch models.Channel, boardToken string) error {
	f.calls++
	if f.fail != nil && f.calls > f.failAfter {
		return f.fail
	}
	f.active[ch] = boardToken
	return nil
}

func (f *fakeSubscriber) Unsubscribe(ch models.Channel) error {
	delete(f.active, ch)
	return nil
}

func (f *fakeSubscriber) channels() []models.Channel {
	out := make([]models.Channel, 0, len(f.active))
	for ch := range f.active {
		out = append(out, ch)
	}
	return out
}

func TestRegistryOpenSubscribesScope(t *testing.T) {
	sub := newFakeSubscriber()
	reg := NewRegistry(sub)

	require.NoError(t, reg.OpenBoard(1, "tok"))
	require.NoError(t, reg.OpenBoard(1, "tok"))
	assert.Len(t, sub.active, len(models.KindsFor(models.ScopeBoard)))
	assert.Equal(t, "tok", sub.active[models.Channel{Kind: models.ListAdded, ParentID: 1}])

	require.NoError(t, reg.OpenList(10, "tok"))
	require.NoError(t, reg.OpenCard(100, "tok"))
	assert.True(t, reg.IsOpen(models.ScopeList, 10))
	assert.ElementsMatch(t, sub.channels(), reg.Channels())
}

func TestRegistryCloseLeavesNothingBehind(t *testing.T) {
	sub := newFakeSubscriber()
	reg := NewRegistry(sub)

	require.NoError(t, reg.OpenBoard(1, ""))
	require.NoError(t, reg.OpenList(10, ""))
	require.NoError(t, reg.OpenCard(100, ""))

	require.NoError(t, reg.CloseCard(100))
	assert.False(t, reg.IsOpen(models.ScopeCard, 100))
	assert.Empty(t, reg.Stale(sub.channels()))

	require.NoError(t, reg.CloseAll())
	assert.Empty(t, sub.active)
	assert.Empty(t, reg.Channels())

	// closing twice is harmless
	require.NoError(t, reg.CloseList(10))
}

func TestRegistryReportsStaleSubscriptions(t *testing.T) {
	sub := newFakeSubscriber()
	reg := NewRegistry(sub)
	require.NoError(t, reg.OpenList(10, ""))

	leaked := models.Channel{Kind: models.CardAdded, ParentID: 11}
	active := append(sub.channels(), leaked)

	assert.Equal(t, []models.Channel{leaked}, reg.Stale(active))
}

func TestRegistryOpenFailureDoesNotMarkOpen(t *testing.T) {
	sub := newFakeSubscriber()
	sub.fail = errors.New("offline")
	reg := NewRegistry(sub)

	err := reg.OpenBoard(3, "")
	require.Error(t, err)
	assert.False(t, reg.IsOpen(models.ScopeBoard, 3))
}

func TestRegistryPartialOpenFailureUnsubscribes(t *testing.T) {
	sub := newFakeSubscriber()
	sub.fail = errors.New("dropped")
	sub.failAfter = 1
	reg := NewRegistry(sub)

	err := reg.OpenBoard(3, "tok")
	require.ErrorIs(t, err, sub.fail)
	assert.Equal(t, 2, sub.calls)
	assert.False(t, reg.IsOpen(models.ScopeBoard, 3))
	assert.Empty(t, sub.active)
	assert.Empty(t, reg.Channels())

	sub.fail = nil
	require.NoError(t, reg.OpenBoard(3, "tok"))
	assert.Len(t, sub.active, len(models.KindsFor(models.ScopeBoard)))
}
