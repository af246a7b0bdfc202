package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized covers missing, expired or mismatched tokens and wrong
// board passwords.
var ErrUnauthorized = errors.New("unauthorized")

const (
	scopeSession = "session"
	scopeBoard   = "board"

	sessionTTL    = 7 * 24 * time.Hour
	boardTokenTTL = 12 * time.Hour
)

type AuthService struct {
	jwtSecret []byte
	now       func() time.Time
}

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("jwt secret must not be empty")

func NewAuthService(secret string) (*AuthService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		now:       time.Now,
	}, nil
}

// CreateJWT issues a session token naming the user. The username becomes
// the createdBy of cards the session adds.
func (s *AuthService) CreateJWT(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrUnauthorized)
	}
	return s.sign(jwt.MapClaims{
		"sub":   username,
		"scope": scopeSession,
		"exp":   s.now().Add(sessionTTL).Unix(),
	})
}

// VerifyJWT checks a session token and returns the username.
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, scopeSession)
	if err != nil {
		return "", err
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%w: username claim missing", ErrUnauthorized)
	}
	return username, nil
}

// CreateBoardToken grants access to a password protected board.
func (s *AuthService) CreateBoardToken(boardID int64) (string, error) {
	return s.sign(jwt.MapClaims{
		"sub":   strconv.FormatInt(boardID, 10),
		"scope": scopeBoard,
		"exp":   s.now().Add(boardTokenTTL).Unix(),
	})
}

// VerifyBoardToken checks that tokenString unlocks boardID.
func (s *AuthService) VerifyBoardToken(tokenString string, boardID int64) error {
	if tokenString == "" {
		return fmt.Errorf("%w: board %d is locked", ErrUnauthorized, boardID)
	}
	claims, err := s.parse(tokenString, scopeBoard)
	if err != nil {
		return err
	}
	if sub, _ := claims["sub"].(string); sub != strconv.FormatInt(boardID, 10) {
		return fmt.Errorf("%w: token is for another board", ErrUnauthorized)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: wrong password", ErrUnauthorized)
	}
	return nil
}

func (s *AuthService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) parse(tokenString, scope string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	if got, _ := claims["scope"].(string); got != scope {
		return nil, fmt.Errorf("%w: token scope %q, want %q", ErrUnauthorized, got, scope)
	}
	return claims, nil
}
