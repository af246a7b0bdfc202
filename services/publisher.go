package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/models"
)

// Publisher delivers one event to whoever listens on its channel.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Fanout hands every event to each sink in turn. A failing sink is logged
// and does not stop delivery to the others.
type Fanout struct {
	sinks []Publisher
	log   zerolog.Logger
}

func NewFanout(log zerolog.Logger, sinks ...Publisher) *Fanout {
	return &Fanout{sinks: sinks, log: log}
}

// Add registers another sink. Not safe once publishing has started.
func (f *Fanout) Add(sink Publisher) {
	f.sinks = append(f.sinks, sink)
}

func (f *Fanout) Publish(ctx context.Context, ev models.Event) error {
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			f.log.Warn().Err(err).Str("channel", ev.Channel().String()).Msg("publish failed")
		}
	}
	return nil
}

// publishAll sends events in order on behalf of a service. It runs after
// commit, so a caller that has gone away must not cancel delivery.
func publishAll(ctx context.Context, pub Publisher, events ...models.Event) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		pub.Publish(ctx, ev)
	}
}

func event(kind models.EventKind, parentID int64, data any) models.Event {
	return models.Event{Kind: kind, ParentID: parentID, Data: data}
}
