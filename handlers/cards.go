package handlers

import (
	"net/http"

	"github.com/CrowderSoup/taskboard/services"
)

type CardHandler struct {
	cards    *services.CardService
	subtasks *services.SubtaskService
	tags     *services.TagService
}

func NewCardHandler(cards *services.CardService, subtasks *services.SubtaskService, tags *services.TagService) *CardHandler {
	return &CardHandler{cards: cards, subtasks: subtasks, tags: tags}
}

func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.cards.Get(r.Context(), id)
	respond(w, r, http.StatusOK, card, err)
}

func (h *CardHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var patch services.CardPatch
	if err := decodeBody(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.cards.Edit(r.Context(), id, patch)
	respond(w, r, http.StatusOK, card, err)
}

func (h *CardHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.cards.Remove(r.Context(), id)
	respond(w, r, http.StatusOK, card, err)
}

// Relocate moves a card to {listId, index, status}
func (h *CardHandler) Relocate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req services.Relocation
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.cards.Relocate(r.Context(), id, req)
	respond(w, r, http.StatusOK, card, err)
}

func (h *CardHandler) CreateSubtaskList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.subtasks.CreateList(r.Context(), id)
	respond(w, r, http.StatusOK, card, err)
}

func (h *CardHandler) Subtasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	subtasks, err := h.subtasks.ByCard(r.Context(), id)
	respond(w, r, http.StatusOK, subtasks, err)
}

func (h *CardHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		services.SubtaskBlueprint
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	subtask, err := h.subtasks.Add(r.Context(), id, body.SubtaskBlueprint, body.Index)
	respond(w, r, http.StatusCreated, subtask, err)
}

// Tags lists the card's tags, or with ?available=true the board's tags
// the card does not carry yet
func (h *CardHandler) Tags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if r.URL.Query().Get("available") == "true" {
		tags, err := h.tags.AvailableForCard(r.Context(), id)
		respond(w, r, http.StatusOK, tags, err)
		return
	}
	tags, err := h.tags.AssignedToCard(r.Context(), id)
	respond(w, r, http.StatusOK, tags, err)
}

func (h *CardHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.tags.Attach(r.Context(), id, tagID)
	respond(w, r, http.StatusOK, card, err)
}

func (h *CardHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		fail(w, r, err)
		return
	}
	card, err := h.tags.Detach(r.Context(), id, tagID)
	respond(w, r, http.StatusOK, card, err)
}
