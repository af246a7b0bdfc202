package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks are left to the CORS layer
	},
}

// LiveHandler serves the push channels: the websocket hub and the
// long-poll removal feed.
type LiveHandler struct {
	hub         *services.Hub
	feed        *services.RemovalFeed
	boards      *services.BoardService
	pollTimeout time.Duration
}

func NewLiveHandler(hub *services.Hub, feed *services.RemovalFeed, boards *services.BoardService, pollTimeout time.Duration) *LiveHandler {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &LiveHandler{hub: hub, feed: feed, boards: boards, pollTimeout: pollTimeout}
}

func (h *LiveHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	username, _ := Username(r.Context())
	client := services.NewClient(h.hub, conn, username)
	h.hub.Register(client)

	// The pumps outlive the upgrade request
	go client.WritePump()
	go client.ReadPump(context.WithoutCancel(r.Context()))
}

// ListRemovals answers with the next list removal on the board after the
// ?after= cursor, or 204 when none happens before the poll times out.
func (h *LiveHandler) ListRemovals(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if _, err := h.boards.Get(r.Context(), boardID); err != nil {
		fail(w, r, err)
		return
	}

	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_OPERATION", "after must be a sequence number")
			return
		}
	}

	removal, ok, err := h.feed.Wait(r.Context(), boardID, after, h.pollTimeout)
	if err != nil {
		// client went away
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, removal)
}
