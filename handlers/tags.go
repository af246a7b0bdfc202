package handlers

import (
	"net/http"

	"github.com/CrowderSoup/taskboard/services"
)

type TagHandler struct {
	tags *services.TagService
}

func NewTagHandler(tags *services.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var patch services.TagPatch
	if err := decodeBody(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	tag, err := h.tags.Update(r.Context(), id, patch)
	respond(w, r, http.StatusOK, tag, err)
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	tag, err := h.tags.Delete(r.Context(), id)
	respond(w, r, http.StatusOK, tag, err)
}
