package handlers

import (
	"net/http"
	"strings"

	"github.com/CrowderSoup/taskboard/services"
)

// AuthHandler hands out session tokens. There are no accounts: the
// username only labels the cards a session creates.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CreateSession issues a token for the requested username
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "INVALID_OPERATION", "username is required")
		return
	}

	token, err := h.authService.CreateJWT(username)
	respond(w, r, http.StatusCreated, map[string]string{
		"token":    token,
		"username": username,
	}, err)
}

// VerifyToken reports the username behind the caller's token
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	username, ok := Username(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": username,
		"status":   "valid",
	})
}
