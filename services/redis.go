package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CrowderSoup/taskboard/models"
)

// RedisMirror republishes every event on a Redis pub/sub channel so
// processes outside the server can follow a board.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

func NewRedisMirror(redisURL string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisMirrorWithClient(client), nil
}

func NewRedisMirrorWithClient(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client, prefix: "taskboard:"}
}

// Channel maps a (kind, parent) address to its Redis channel name, e.g.
// taskboard:card.added:12.
func (m *RedisMirror) Channel(ch models.Channel) string {
	return m.prefix + string(ch.Kind) + ":" + strconv.FormatInt(ch.ParentID, 10)
}

func (m *RedisMirror) Publish(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := m.client.Publish(ctx, m.Channel(ev.Channel()), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Channel(), err)
	}
	return nil
}

// Subscribe listens on the given addresses. Callers read from the
// returned PubSub's Channel and close it when done.
func (m *RedisMirror) Subscribe(ctx context.Context, chans ...models.Channel) *redis.PubSub {
	names := make([]string, len(chans))
	for i, ch := range chans {
		names[i] = m.Channel(ch)
	}
	return m.client.Subscribe(ctx, names...)
}

func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
