package handlers

import (
	"net/http"

	"github.com/CrowderSoup/taskboard/services"
)

type ListHandler struct {
	lists *services.ListService
	cards *services.CardService
}

func NewListHandler(lists *services.ListService, cards *services.CardService) *ListHandler {
	return &ListHandler{lists: lists, cards: cards}
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := h.lists.Get(r.Context(), id)
	respond(w, r, http.StatusOK, list, err)
}

// Edit applies a partial update; only fields present in the body change
func (h *ListHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var patch services.ListPatch
	if err := decodeBody(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	list, err := h.lists.Edit(r.Context(), id, patch)
	respond(w, r, http.StatusOK, list, err)
}

func (h *ListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := h.lists.Remove(r.Context(), id)
	respond(w, r, http.StatusOK, list, err)
}

func (h *ListHandler) Cards(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	status, err := statusFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	cards, err := h.cards.ByList(r.Context(), id, status)
	respond(w, r, http.StatusOK, cards, err)
}

// AddCard creates a card owned by the session user
func (h *ListHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		services.CardBlueprint
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	username, _ := Username(r.Context())
	card, err := h.cards.Add(r.Context(), id, body.CardBlueprint, username, body.Index)
	respond(w, r, http.StatusCreated, card, err)
}
