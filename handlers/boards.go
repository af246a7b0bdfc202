package handlers

import (
	"net/http"

	"github.com/CrowderSoup/taskboard/services"
)

type BoardHandler struct {
	boards *services.BoardService
	lists  *services.ListService
	tags   *services.TagService
}

func NewBoardHandler(boards *services.BoardService, lists *services.ListService, tags *services.TagService) *BoardHandler {
	return &BoardHandler{boards: boards, lists: lists, tags: tags}
}

func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boards.List(r.Context())
	respond(w, r, http.StatusOK, boards, err)
}

func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var bp services.BoardBlueprint
	if err := decodeBody(r, &bp); err != nil {
		fail(w, r, err)
		return
	}
	board, err := h.boards.Create(r.Context(), bp)
	respond(w, r, http.StatusCreated, board, err)
}

func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	board, err := h.boards.Get(r.Context(), id)
	respond(w, r, http.StatusOK, board, err)
}

func (h *BoardHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	board, err := h.boards.Rename(r.Context(), id, body.Name)
	respond(w, r, http.StatusOK, board, err)
}

func (h *BoardHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	board, err := h.boards.SetPassword(r.Context(), id, body.Password)
	respond(w, r, http.StatusOK, board, err)
}

// Unlock trades the board password for a board token
func (h *BoardHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	token, err := h.boards.Unlock(r.Context(), id, body.Password)
	respond(w, r, http.StatusOK, map[string]string{"boardToken": token}, err)
}

func (h *BoardHandler) Lists(w http.ResponseWriter, r *http.Request) {
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
	lists, err := h.lists.ByBoard(r.Context(), id, status)
	respond(w, r, http.StatusOK, lists, err)
}

func (h *BoardHandler) AddList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var body struct {
		services.ListBlueprint
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	list, err := h.lists.Add(r.Context(), id, body.ListBlueprint, body.Index)
	respond(w, r, http.StatusCreated, list, err)
}

func (h *BoardHandler) Tags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	tags, err := h.tags.ByBoard(r.Context(), id)
	respond(w, r, http.StatusOK, tags, err)
}

func (h *BoardHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var bp services.TagBlueprint
	if err := decodeBody(r, &bp); err != nil {
		fail(w, r, err)
		return
	}
	tag, err := h.tags.Create(r.Context(), id, bp)
	respond(w, r, http.StatusCreated, tag, err)
}
