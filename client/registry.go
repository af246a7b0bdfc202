package client

import (
	"fmt"
	"sort"
	"sync"

	"github.com/CrowderSoup/taskboard/models"
)

// Subscriber is the part of a push connection the registry drives.
type Subscriber interface {
	Subscribe(ch models.Channel, boardToken string) error
	Unsubscribe(ch models.Channel) error
}

type scopeKey struct {
	scope models.Scope
	id    int64
}

// Registry tracks which boards, lists and cards a session has open and
// keeps exactly their channels subscribed.
type Registry struct {
	mu   sync.Mutex
	sub  Subscriber
	open map[scopeKey]string
}

func NewRegistry(sub Subscriber) *Registry {
	return &Registry{sub: sub, open: make(map[scopeKey]string)}
}

func (r *Registry) OpenBoard(id int64, boardToken string) error {
	return r.openScope(models.ScopeBoard, id, boardToken)
}

func (r *Registry) OpenList(id int64, boardToken string) error {
	return r.openScope(models.ScopeList, id, boardToken)
}

func (r *Registry) OpenCard(id int64, boardToken string) error {
	return r.openScope(models.ScopeCard, id, boardToken)
}

func (r *Registry) CloseBoard(id int64) error { return r.closeScope(models.ScopeBoard, id) }
func (r *Registry) CloseList(id int64) error  { return r.closeScope(models.ScopeList, id) }
func (r *Registry) CloseCard(id int64) error  { return r.closeScope(models.ScopeCard, id) }

// IsOpen reports whether the parent is open in this session.
func (r *Registry) IsOpen(scope models.Scope, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[scopeKey{scope, id}]
	return ok
}

// Channels lists every channel the open parents need.
func (r *Registry) Channels() []models.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Channel
	for key := range r.open {
		out = append(out, channelsFor(key)...)
	}
	sortChannels(out)
	return out
}

// Stale returns the channels in active that no open parent needs.
func (r *Registry) Stale(active []models.Channel) []models.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []models.Channel
	for _, ch := range active {
		if _, ok := r.open[scopeKey{ch.Kind.Scope(), ch.ParentID}]; !ok {
			stale = append(stale, ch)
		}
	}
	sortChannels(stale)
	return stale
}

// CloseAll closes every open parent, e.g. when the session ends.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	keys := make([]scopeKey, 0, len(r.open))
	for key := range r.open {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := r.closeScope(key.scope, key.id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) openScope(scope models.Scope, id int64, boardToken string) error {
	key := scopeKey{scope, id}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[key]; ok {
		return nil
	}
	channels := channelsFor(key)
	for i, ch := range channels {
		if err := r.sub.Subscribe(ch, boardToken); err != nil {
			// a scope is either fully subscribed or not at all
			for _, done := range channels[:i] {
				_ = r.sub.Unsubscribe(done)
			}
			return fmt.Errorf("open %s %d: %w", scope, id, err)
		}
	}
	r.open[key] = boardToken
	return nil
}

func (r *Registry) closeScope(scope models.Scope, id int64) error {
	key := scopeKey{scope, id}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[key]; !ok {
		return nil
	}
	delete(r.open, key)
	for _, ch := range channelsFor(key) {
		if err := r.sub.Unsubscribe(ch); err != nil {
			return fmt.Errorf("close %s %d: %w", scope, id, err)
		}
	}
	return nil
}

func channelsFor(key scopeKey) []models.Channel {
	kinds := models.KindsFor(key.scope)
	out := make([]models.Channel, len(kinds))
	for i, k := range kinds {
		out[i] = models.Channel{Kind: k, ParentID: key.id}
	}
	return out
}

func sortChannels(chs []models.Channel) {
	sort.Slice(chs, func(i, j int) bool {
		if chs[i].ParentID != chs[j].ParentID {
			return chs[i].ParentID < chs[j].ParentID
		}
		return chs[i].Kind < chs[j].Kind
	})
}
