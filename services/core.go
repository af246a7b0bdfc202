package services

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

// core is what every domain service needs: the store, the per-parent lock
// set shared by all services, and somewhere to publish events.
type core struct {
	store *database.Store
	locks *ordering.Locks
	pub   Publisher
	log   zerolog.Logger
}

func boardKey(id int64) string { return fmt.Sprintf("board:%d", id) }
func listKey(id int64) string  { return fmt.Sprintf("list:%d", id) }
func cardKey(id int64) string  { return fmt.Sprintf("card:%d", id) }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ordering.ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// resolveStatus applies a default and rejects statuses outside allowed.
func resolveStatus(s *models.Status, def models.Status, allowed ...models.Status) (models.Status, error) {
	if s == nil || *s == "" {
		return def, nil
	}
	for _, a := range allowed {
		if *s == a {
			return a, nil
		}
	}
	return "", invalid("status %q is not allowed here", *s)
}
