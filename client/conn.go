package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/models"
)

// ErrDisconnected is returned by Run once reconnecting has been given up.
var ErrDisconnected = errors.New("disconnected")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	case StateDisconnected:
		return "Disconnected"
	case StateClosed:
		return "Closed"
	}
	return "InvalidState"
}

// Frame is the websocket message shape.
type Frame struct {
	Type       string           `json:"type"`
	Kind       models.EventKind `json:"kind,omitempty"`
	ParentID   int64            `json:"parentId,omitempty"`
	BoardToken string           `json:"boardToken,omitempty"`
	Data       json.RawMessage  `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Event is a broadcast as received, with the entity still encoded.
type Event struct {
	Kind     models.EventKind
	ParentID int64
	Data     json.RawMessage
}

// Decode unmarshals the event's entity into target.
func (e Event) Decode(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Conn is a push connection that survives server restarts. It remembers
// its subscriptions and replays them after every reconnect.
type Conn struct {
	URL     string
	Token   string
	Dialer  *websocket.Dialer
	Backoff *Backoff

	// Handler receives every event, on the read goroutine
	Handler func(Event)
	// OnState is told about every state change
	OnState func(State)

	log zerolog.Logger

	mu    sync.Mutex
	ws    *websocket.Conn
	state State
	subs  map[models.Channel]string

	writeMu sync.Mutex
}

func NewConn(wsURL, token string, handler func(Event), log zerolog.Logger) *Conn {
	return &Conn{
		URL:     wsURL,
		Token:   token,
		Dialer:  websocket.DefaultDialer,
		Backoff: NewBackoff(),
		Handler: handler,
		log:     log,
		subs:    make(map[models.Channel]string),
	}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects and keeps the connection up until ctx is done or the
// backoff gives up, in which case the state becomes Disconnected and
// ErrDisconnected is returned.
func (c *Conn) Run(ctx context.Context) error {
	attempt := 0
	c.setState(StateConnecting)
	for {
		ws, err := c.dial(ctx)
		if err == nil {
			attempt = 0
			err = c.serve(ctx, ws)
		}
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return ctx.Err()
		}

		delay, ok := c.Backoff.NextDelay(attempt)
		attempt++
		if !ok {
			c.setState(StateDisconnected)
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("connection lost")
		c.setState(StateReconnecting)
		if err := sleep(ctx, delay); err != nil {
			c.setState(StateClosed)
			return err
		}
	}
}

// Subscribe starts listening on ch. While offline the subscription is
// only recorded and is sent on the next connect.
func (c *Conn) Subscribe(ch models.Channel, boardToken string) error {
	c.mu.Lock()
	c.subs[ch] = boardToken
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return nil
	}
	return c.write(ws, Frame{Type: "subscribe", Kind: ch.Kind, ParentID: ch.ParentID, BoardToken: boardToken})
}

func (c *Conn) Unsubscribe(ch models.Channel) error {
	c.mu.Lock()
	delete(c.subs, ch)
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return nil
	}
	return c.write(ws, Frame{Type: "unsubscribe", Kind: ch.Kind, ParentID: ch.ParentID})
}

// Subscriptions lists the channels this connection listens on.
func (c *Conn) Subscriptions() []models.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Channel, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID < out[j].ParentID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	if c.Token != "" {
		q := u.Query()
		q.Set("token", c.Token)
		u.RawQuery = q.Encode()
	}
	ws, _, err := c.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.URL, err)
	}
	return ws, nil
}

// serve resubscribes and reads until the connection fails.
func (c *Conn) serve(ctx context.Context, ws *websocket.Conn) error {
	c.mu.Lock()
	c.ws = ws
	subs := make(map[models.Channel]string, len(c.subs))
	for ch, token := range c.subs {
		subs[ch] = token
	}
	c.mu.Unlock()
	c.setState(StateConnected)

	defer func() {
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	for ch, token := range subs {
		if err := c.write(ws, Frame{Type: "subscribe", Kind: ch.Kind, ParentID: ch.ParentID, BoardToken: token}); err != nil {
			return err
		}
	}

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		// the server may batch several frames into one message
		for _, line := range bytes.Split(message, []byte("\n")) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var frame Frame
			if err := json.Unmarshal(line, &frame); err != nil {
				c.log.Warn().Err(err).Msg("malformed frame")
				continue
			}
			c.dispatch(frame)
		}
	}
}

func (c *Conn) dispatch(frame Frame) {
	switch frame.Type {
	case "event":
		if c.Handler != nil {
			c.Handler(Event{Kind: frame.Kind, ParentID: frame.ParentID, Data: frame.Data})
		}
	case "error":
		c.log.Warn().Str("kind", string(frame.Kind)).Int64("parent", frame.ParentID).
			Str("error", frame.Error).Msg("server rejected frame")
	default:
		c.log.Debug().Str("type", frame.Type).Str("kind", string(frame.Kind)).Msg("frame")
	}
}

func (c *Conn) write(ws *websocket.Conn, frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", frame.Type, err)
	}
	return nil
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed && c.OnState != nil {
		c.OnState(s)
	}
}
