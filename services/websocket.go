package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per client before it is dropped as slow
	sendBuffer = 256
)

// Frame types exchanged over the websocket.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FramePing         = "ping"
	FramePong         = "pong"
	FrameEvent        = "event"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
)

// Frame is the one message shape used in both directions.
type Frame struct {
	Type       string           `json:"type"`
	Kind       models.EventKind `json:"kind,omitempty"`
	ParentID   int64            `json:"parentId,omitempty"`
	BoardToken string           `json:"boardToken,omitempty"`
	Data       any              `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (f Frame) channel() models.Channel {
	return models.Channel{Kind: f.Kind, ParentID: f.ParentID}
}

// Authorizer decides whether a client may listen on a channel.
type Authorizer func(ctx context.Context, ch models.Channel, boardToken string) error

// Client represents a connected WebSocket client
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Username string

	// owned by the hub goroutine
	subs map[models.Channel]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, username string) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Username: username,
		subs:     make(map[models.Channel]bool),
	}
}

// ReadPump pumps frames from the WebSocket connection to the hub
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug().Err(err).Str("user", c.Username).Msg("websocket read failed")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.Hub.reply(c, Frame{Type: FrameError, Error: "malformed frame"})
			continue
		}

		switch frame.Type {
		case FramePing:
			c.Hub.reply(c, Frame{Type: FramePong})
		case FrameSubscribe:
			if !frame.Kind.Valid() {
				c.Hub.reply(c, Frame{Type: FrameError, Error: fmt.Sprintf("unknown kind %q", frame.Kind)})
				continue
			}
			if c.Hub.authorize != nil {
				if err := c.Hub.authorize(ctx, frame.channel(), frame.BoardToken); err != nil {
					c.Hub.reply(c, Frame{Type: FrameError, Kind: frame.Kind, ParentID: frame.ParentID, Error: err.Error()})
					continue
				}
			}
			sendOrStop(c.Hub.done, c.Hub.subscribe, subscription{client: c, channel: frame.channel()})
		case FrameUnsubscribe:
			sendOrStop(c.Hub.done, c.Hub.unsubscribe, subscription{client: c, channel: frame.channel()})
		default:
			c.Hub.reply(c, Frame{Type: FrameError, Error: fmt.Sprintf("unknown frame type %q", frame.Type)})
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued frames to the current WebSocket message, one per line
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type subscription struct {
	client  *Client
	channel models.Channel
}

type directFrame struct {
	client *Client
	frame  Frame
}

type countRequest struct {
	channel models.Channel
	reply   chan int
}

// Hub maintains the connected clients and their channel subscriptions.
// Only the Run goroutine touches clients, topics and client Send channels.
type Hub struct {
	clients     map[*Client]bool
	topics      map[models.Channel]map[*Client]bool
	broadcast   chan models.Event
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	direct      chan directFrame
	count       chan countRequest
	done        chan struct{}

	authorize Authorizer
	log       zerolog.Logger
}

func NewHub(authorize Authorizer, log zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		topics:      make(map[models.Channel]map[*Client]bool),
		broadcast:   make(chan models.Event, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		direct:      make(chan directFrame, 64),
		count:       make(chan countRequest),
		done:        make(chan struct{}),
		authorize:   authorize,
		log:         log,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	sendOrStop(h.done, h.register, client)
}

// Unregister removes a client and all of its subscriptions
func (h *Hub) Unregister(client *Client) {
	sendOrStop(h.done, h.unregister, client)
}

// Publish queues an event for every client subscribed to its channel.
func (h *Hub) Publish(ctx context.Context, ev models.Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers reports how many clients listen on ch.
func (h *Hub) Subscribers(ch models.Channel) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{channel: ch, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Run starts the hub's main loop. It returns when ctx is done, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.Send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug().Str("user", client.Username).Msg("client connected")
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.Debug().Str("user", client.Username).Msg("client disconnected")
			}
		case sub := <-h.subscribe:
			if !h.clients[sub.client] {
				continue
			}
			subs, ok := h.topics[sub.channel]
			if !ok {
				subs = make(map[*Client]bool)
				h.topics[sub.channel] = subs
			}
			subs[sub.client] = true
			sub.client.subs[sub.channel] = true
			h.deliver(sub.client, Frame{Type: FrameSubscribed, Kind: sub.channel.Kind, ParentID: sub.channel.ParentID})
		case sub := <-h.unsubscribe:
			if !h.clients[sub.client] {
				continue
			}
			h.leave(sub.client, sub.channel)
			h.deliver(sub.client, Frame{Type: FrameUnsubscribed, Kind: sub.channel.Kind, ParentID: sub.channel.ParentID})
		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.frame)
			}
		case req := <-h.count:
			req.reply <- len(h.topics[req.channel])
		case ev := <-h.broadcast:
			subs := h.topics[ev.Channel()]
			if len(subs) == 0 {
				continue
			}
			message, err := json.Marshal(Frame{Type: FrameEvent, Kind: ev.Kind, ParentID: ev.ParentID, Data: ev.Data})
			if err != nil {
				h.log.Error().Err(err).Str("channel", ev.Channel().String()).Msg("marshal event")
				continue
			}
			for client := range subs {
				h.push(client, message)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, frame Frame) {
	message, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal frame")
		return
	}
	h.push(client, message)
}

func (h *Hub) push(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		// Client's send buffer is full, assume disconnected
		h.log.Warn().Str("user", client.Username).Msg("client send buffer full, removing client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	for ch := range client.subs {
		h.leave(client, ch)
	}
	delete(h.clients, client)
	close(client.Send)
}

func (h *Hub) leave(client *Client, ch models.Channel) {
	delete(client.subs, ch)
	if subs, ok := h.topics[ch]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, ch)
		}
	}
}

// reply queues a frame for one client without blocking the read loop on
// a stopped hub.
func (h *Hub) reply(client *Client, frame Frame) {
	sendOrStop(h.done, h.direct, directFrame{client: client, frame: frame})
}

func sendOrStop[T any](done <-chan struct{}, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-done:
	}
}
