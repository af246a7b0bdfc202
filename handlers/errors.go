package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/CrowderSoup/taskboard/models"
	"github.com/CrowderSoup/taskboard/ordering"
	"github.com/CrowderSoup/taskboard/services"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":  code,
		"error": message,
	})
}

// respond maps err onto a status code, or writes payload when err is nil.
func respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeError(w, status, code, message)
}

func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, ordering.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, ordering.ErrInvalidOperation):
		return http.StatusBadRequest, "INVALID_OPERATION", err.Error()
	case errors.Is(err, ordering.ErrConflictDuringReindex):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}

// decodeBody reads a JSON body into target. An empty body leaves target
// untouched.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body", ordering.ErrInvalidOperation)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ordering.ErrInvalidOperation, name, raw)
	}
	return id, nil
}

// statusFilter reads the optional ?status= query parameter.
func statusFilter(r *http.Request) (*models.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	s, err := models.ParseStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ordering.ErrInvalidOperation, err)
	}
	return &s, nil
}
