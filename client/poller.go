package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Removal is a list removal notice from the long-poll feed.
type Removal struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"boardId"`
	Seq     uint64 `json:"seq"`
}

// RemovalPoller follows a board's list removals over long polling. Polls
// are paced by a rate limiter so a server that answers instantly cannot
// drive a tight loop, and failures back off.
type RemovalPoller struct {
	API     *API
	BoardID int64
	Limiter *rate.Limiter
	Backoff *Backoff

	log    zerolog.Logger
	cursor uint64
}

func NewRemovalPoller(api *API, boardID int64, log zerolog.Logger) *RemovalPoller {
	return &RemovalPoller{
		API:     api,
		BoardID: boardID,
		Limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		Backoff: NewBackoff(),
		log:     log,
	}
}

// Cursor is the seq of the last removal handed out.
func (p *RemovalPoller) Cursor() uint64 { return p.cursor }

// Run polls until ctx is done and calls fn for every removal in order.
// Removals may repeat after a server restart; apply them by id.
func (p *RemovalPoller) Run(ctx context.Context, fn func(Removal)) error {
	failures := 0
	for {
		if err := p.Limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		removal, ok, err := p.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay, retry := p.Backoff.NextDelay(failures)
			failures++
			if !retry {
				return fmt.Errorf("poll removals for board %d: %w", p.BoardID, err)
			}
			p.log.Warn().Err(err).Dur("retry_in", delay).Msg("removal poll failed")
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}
		failures = 0
		if ok {
			fn(removal)
		}
	}
}

// Poll issues one long poll. ok is false when the server timed out with
// nothing to report.
func (p *RemovalPoller) Poll(ctx context.Context) (Removal, bool, error) {
	path := fmt.Sprintf("%s/api/boards/%d/lists/removals?after=%d", p.API.BaseURL, p.BoardID, p.cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Removal{}, false, err
	}
	if p.API.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.API.Token)
	}

	resp, err := p.API.HTTP.Do(req)
	if err != nil {
		return Removal{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return Removal{}, false, nil
	case http.StatusOK:
		var removal Removal
		if err := json.NewDecoder(resp.Body).Decode(&removal); err != nil {
			return Removal{}, false, fmt.Errorf("decode removal: %w", err)
		}
		p.cursor = removal.Seq
		return removal, true, nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(resp.Body).Decode(apiErr)
	return Removal{}, false, apiErr
}
