package handlers

import (
	"fmt"
	"net/http"

	"github.com/CrowderSoup/taskboard/ordering"
	"github.com/CrowderSoup/taskboard/services"
)

type SubtaskHandler struct {
	subtasks *services.SubtaskService
}

func NewSubtaskHandler(subtasks *services.SubtaskService) *SubtaskHandler {
	return &SubtaskHandler{subtasks: subtasks}
}

func (h *SubtaskHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var patch services.SubtaskPatch
	if err := decodeBody(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	subtask, err := h.subtasks.Edit(r.Context(), id, patch)
	respond(w, r, http.StatusOK, subtask, err)
}

func (h *SubtaskHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	subtask, err := h.subtasks.Remove(r.Context(), id)
	respond(w, r, http.StatusOK, subtask, err)
}

func (h *SubtaskHandler) Relocate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	if body.Index == nil {
		fail(w, r, fmt.Errorf("%w: index is required", ordering.ErrInvalidOperation))
		return
	}
	subtask, err := h.subtasks.Relocate(r.Context(), id, *body.Index)
	respond(w, r, http.StatusOK, subtask, err)
}
