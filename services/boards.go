package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
)

// DefaultLists are created, in order, on every new board.
var DefaultLists = []string{"To-Do", "Working", "Done"}

type BoardBlueprint struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Password string `json:"password,omitempty"`
}

type BoardService struct {
	core
	auth *AuthService
}

func NewBoardService(store *database.Store, locks *ordering.Locks, pub Publisher, auth *AuthService, log zerolog.Logger) *BoardService {
	return &BoardService{core: core{store: store, locks: locks, pub: pub, log: log}, auth: auth}
}

// Create makes a board with the default lists.
func (s *BoardService) Create(ctx context.Context, bp BoardBlueprint) (models.Board, error) {
	if strings.TrimSpace(bp.Name) == "" {
		return models.Board{}, invalid("board name is required")
	}

	board := models.Board{Name: bp.Name, Color: bp.Color, Status: models.StatusActive}
	if bp.Password != "" {
		hash, err := HashPassword(bp.Password)
		if err != nil {
			return models.Board{}, err
		}
		board.PasswordHash = hash
	}

	err := s.store.WithTx(ctx, func(tx *database.Repos) error {
		var err error
		board, err = tx.Boards.Create(ctx, board)
		if err != nil {
			return err
		}
		for i, name := range DefaultLists {
			_, err := tx.Lists.Create(ctx, models.TaskList{
				BoardID: board.ID,
				Name:    name,
				Status:  models.StatusActive,
				Index:   i,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("create board: %w", err)
	}

	s.log.Info().Int64("board", board.ID).Str("name", board.Name).Msg("board created")
	return board, nil
}

func (s *BoardService) Get(ctx context.Context, id int64) (models.Board, error) {
	return s.store.Boards.Get(ctx, id)
}

func (s *BoardService) List(ctx context.Context) ([]models.Board, error) {
	return s.store.Boards.List(ctx)
}

func (s *BoardService) Rename(ctx context.Context, id int64, name string) (models.Board, error) {
	if strings.TrimSpace(name) == "" {
		return models.Board{}, invalid("board name is required")
	}
	if err := s.store.Boards.Rename(ctx, id, name); err != nil {
		return models.Board{}, fmt.Errorf("rename board %d: %w", id, err)
	}
	board, err := s.store.Boards.Get(ctx, id)
	if err != nil {
		return models.Board{}, err
	}

	publishAll(ctx, s.pub, event(models.BoardRenamed, id, board))
	return board, nil
}

// SetPassword protects the board; an empty password removes protection.
func (s *BoardService) SetPassword(ctx context.Context, id int64, password string) (models.Board, error) {
	hash := ""
	if password != "" {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return models.Board{}, err
		}
	}
	if err := s.store.Boards.SetPasswordHash(ctx, id, hash); err != nil {
		return models.Board{}, fmt.Errorf("set password on board %d: %w", id, err)
	}
	board, err := s.store.Boards.Get(ctx, id)
	if err != nil {
		return models.Board{}, err
	}

	publishAll(ctx, s.pub, event(models.BoardPasswordChanged, id, board))
	return board, nil
}

// Unlock checks the board password and returns a board token. Boards
// without a password unlock with any password.
func (s *BoardService) Unlock(ctx context.Context, id int64, password string) (string, error) {
	board, err := s.store.Boards.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if board.HasPassword {
		if err := CheckPassword(board.PasswordHash, password); err != nil {
			return "", err
		}
	}
	return s.auth.CreateBoardToken(id)
}

// BoardOf resolves the board that owns a channel's parent.
func (s *BoardService) BoardOf(ctx context.Context, ch models.Channel) (models.Board, error) {
	boardID := ch.ParentID
	switch ch.Kind.Scope() {
	case models.ScopeBoard:
	case models.ScopeList:
		list, err := s.store.Lists.Get(ctx, ch.ParentID)
		if err != nil {
			return models.Board{}, err
		}
		boardID = list.BoardID
	case models.ScopeCard:
		card, err := s.store.Cards.Get(ctx, ch.ParentID)
		if err != nil {
			return models.Board{}, err
		}
		list, err := s.store.Lists.Get(ctx, card.ListID)
		if err != nil {
			return models.Board{}, err
		}
		boardID = list.BoardID
	default:
		return models.Board{}, invalid("unknown event kind %q", ch.Kind)
	}
	return s.store.Boards.Get(ctx, boardID)
}

// AuthorizeChannel lets anyone listen on open boards and requires a board
// token for password protected ones.
func (s *BoardService) AuthorizeChannel(ctx context.Context, ch models.Channel, boardToken string) error {
	board, err := s.BoardOf(ctx, ch)
	if err != nil {
		return err
	}
	if !board.HasPassword {
		return nil
	}
	return s.auth.VerifyBoardToken(boardToken, board.ID)
}
