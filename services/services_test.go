package services

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

// recorder is a Publisher that keeps every event it sees.
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) on(kind models.EventKind, parent int64) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Kind == kind && ev.ParentID == parent {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store    *database.Store
	pub      *recorder
	auth     *AuthService
	boards   *BoardService
	lists    *ListService
	cards    *CardService
	subtasks *SubtaskService
	tags     *TagService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:", nil)
}

// newFixtureAt opens databaseURL and wires the services to it. A nil pub
// publishes to a fresh recorder only.
func newFixtureAt(t *testing.T, databaseURL string, pub Publisher) *fixture {
	t.Helper()
	store, err := database.Open(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	locks := ordering.NewLocks()
	rec := &recorder{}
	if pub == nil {
		pub = rec
	}
	log := zerolog.Nop()
	auth, err := NewAuthService("test-secret")
	require.NoError(t, err)

	return &fixture{
		store:    store,
		pub:      rec,
		auth:     auth,
		boards:   NewBoardService(store, locks, pub, auth, log),
		lists:    NewListService(store, locks, pub, log),
		cards:    NewCardService(store, locks, pub, log),
		subtasks: NewSubtaskService(store, locks, pub, log),
		tags:     NewTagService(store, locks, pub, log),
	}
}

// emptyList creates a board and returns its first default list.
func (f *fixture) emptyList(t *testing.T) models.TaskList {
	t.Helper()
	board, err := f.boards.Create(context.Background(), BoardBlueprint{Name: "Board"})
	require.NoError(t, err)
	lists, err := f.lists.ByBoard(context.Background(), board.ID, nil)
	require.NoError(t, err)
	return lists[0]
}

func (f *fixture) addCards(t *testing.T, listID int64, titles ...string) []models.Card {
	t.Helper()
	out := make([]models.Card, len(titles))
	for i, title := range titles {
		c, err := f.cards.Add(context.Background(), listID, CardBlueprint{Title: title}, "tester", nil)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

// order returns the titles of the list's ACTIVE cards by index and checks
// the indices are contiguous.
func (f *fixture) order(t *testing.T, listID int64) []string {
	t.Helper()
	cards, err := f.store.Cards.ByList(context.Background(), listID, models.StatusActive)
	require.NoError(t, err)
	titles := make([]string, len(cards))
	for i, c := range cards {
		require.Equal(t, i, c.Index, "card %q", c.Title)
		titles[i] = c.Title
	}
	return titles
}

func intp(v int) *int { return &v }

func statusp(s models.Status) *models.Status { return &s }
