package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CrowderSoup/taskboard/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// API is a thin REST client for the board server.
type API struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WebSocketURL is the push endpoint matching BaseURL.
func (a *API) WebSocketURL() string {
	u := a.BaseURL + "/api/ws"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

// Login opens a session and keeps its token for later calls.
func (a *API) Login(ctx context.Context, username string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/session", map[string]string{"username": username}, &out); err != nil {
		return err
	}
	a.Token = out.Token
	return nil
}

func (a *API) Board(ctx context.Context, id int64) (models.Board, error) {
	var board models.Board
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/boards/%d", id), nil, &board)
	return board, err
}

// Unlock trades a board password for a board token.
func (a *API) Unlock(ctx context.Context, boardID int64, password string) (string, error) {
	var out struct {
		BoardToken string `json:"boardToken"`
	}
	err := a.do(ctx, http.MethodPost, fmt.Sprintf("/api/boards/%d/unlock", boardID), map[string]string{"password": password}, &out)
	return out.BoardToken, err
}

func (a *API) Lists(ctx context.Context, boardID int64) ([]models.TaskList, error) {
	var lists []models.TaskList
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/boards/%d/lists", boardID), nil, &lists)
	return lists, err
}

func (a *API) Cards(ctx context.Context, listID int64) ([]models.Card, error) {
	var cards []models.Card
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/lists/%d/cards?status=ACTIVE", listID), nil, &cards)
	return cards, err
}

func (a *API) Subtasks(ctx context.Context, cardID int64) ([]models.Subtask, error) {
	var subtasks []models.Subtask
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/cards/%d/subtasks", cardID), nil, &subtasks)
	return subtasks, err
}

func (a *API) ReorderList(ctx context.Context, id int64, index int) (models.TaskList, error) {
	var list models.TaskList
	err := a.do(ctx, http.MethodPatch, fmt.Sprintf("/api/lists/%d", id), map[string]int{"index": index}, &list)
	return list, err
}

func (a *API) RelocateCard(ctx context.Context, id, listID int64, index int) (models.Card, error) {
	var card models.Card
	body := map[string]any{"listId": listID, "index": index}
	err := a.do(ctx, http.MethodPost, fmt.Sprintf("/api/cards/%d/relocate", id), body, &card)
	return card, err
}

func (a *API) RelocateSubtask(ctx context.Context, id int64, index int) (models.Subtask, error) {
	var subtask models.Subtask
	err := a.do(ctx, http.MethodPost, fmt.Sprintf("/api/subtasks/%d/relocate", id), map[string]int{"index": index}, &subtask)
	return subtask, err
}

// CardMover sends dropped cards to their new list and slot.
func (a *API) CardMover() Mover {
	return func(ctx context.Context, d Drop) error {
		_, err := a.RelocateCard(ctx, d.ItemID, d.ToParent, d.ToIndex)
		return err
	}
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
