package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Router bundles every handler the HTTP surface needs.
type Router struct {
	Auth       *AuthHandler
	Boards     *BoardHandler
	Lists      *ListHandler
	Cards      *CardHandler
	Subtasks   *SubtaskHandler
	Tags       *TagHandler
	Live       *LiveHandler
	Middleware *AuthMiddleware
	Log        zerolog.Logger
}

func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(RequestLogger(rt.Log))

	// Public routes
	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/api/session", rt.Auth.CreateSession).Methods("POST")

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(rt.Middleware.Auth)

	api.HandleFunc("/session", rt.Auth.VerifyToken).Methods("GET")
	api.HandleFunc("/ws", rt.Live.HandleWebSocket).Methods("GET")

	api.HandleFunc("/boards", rt.Boards.List).Methods("GET")
	api.HandleFunc("/boards", rt.Boards.Create).Methods("POST")
	api.HandleFunc("/boards/{id:[0-9]+}", rt.Boards.Get).Methods("GET")
	api.HandleFunc("/boards/{id:[0-9]+}/name", rt.Boards.Rename).Methods("POST")
	api.HandleFunc("/boards/{id:[0-9]+}/password", rt.Boards.SetPassword).Methods("POST")
	api.HandleFunc("/boards/{id:[0-9]+}/unlock", rt.Boards.Unlock).Methods("POST")
	api.HandleFunc("/boards/{id:[0-9]+}/lists", rt.Boards.Lists).Methods("GET")
	api.HandleFunc("/boards/{id:[0-9]+}/lists", rt.Boards.AddList).Methods("POST")
	api.HandleFunc("/boards/{id:[0-9]+}/lists/removals", rt.Live.ListRemovals).Methods("GET")
	api.HandleFunc("/boards/{id:[0-9]+}/tags", rt.Boards.Tags).Methods("GET")
	api.HandleFunc("/boards/{id:[0-9]+}/tags", rt.Boards.CreateTag).Methods("POST")

	api.HandleFunc("/lists/{id:[0-9]+}", rt.Lists.Get).Methods("GET")
	api.HandleFunc("/lists/{id:[0-9]+}", rt.Lists.Edit).Methods("PATCH")
	api.HandleFunc("/lists/{id:[0-9]+}", rt.Lists.Remove).Methods("DELETE")
	api.HandleFunc("/lists/{id:[0-9]+}/cards", rt.Lists.Cards).Methods("GET")
	api.HandleFunc("/lists/{id:[0-9]+}/cards", rt.Lists.AddCard).Methods("POST")

	api.HandleFunc("/cards/{id:[0-9]+}", rt.Cards.Get).Methods("GET")
	api.HandleFunc("/cards/{id:[0-9]+}", rt.Cards.Edit).Methods("PATCH")
	api.HandleFunc("/cards/{id:[0-9]+}", rt.Cards.Remove).Methods("DELETE")
	api.HandleFunc("/cards/{id:[0-9]+}/relocate", rt.Cards.Relocate).Methods("POST")
	api.HandleFunc("/cards/{id:[0-9]+}/subtasks/list", rt.Cards.CreateSubtaskList).Methods("POST")
	api.HandleFunc("/cards/{id:[0-9]+}/subtasks", rt.Cards.Subtasks).Methods("GET")
	api.HandleFunc("/cards/{id:[0-9]+}/subtasks", rt.Cards.AddSubtask).Methods("POST")
	api.HandleFunc("/cards/{id:[0-9]+}/tags", rt.Cards.Tags).Methods("GET")
	api.HandleFunc("/cards/{id:[0-9]+}/tags/{tagId:[0-9]+}", rt.Cards.AttachTag).Methods("PUT")
	api.HandleFunc("/cards/{id:[0-9]+}/tags/{tagId:[0-9]+}", rt.Cards.DetachTag).Methods("DELETE")

	api.HandleFunc("/subtasks/{id:[0-9]+}", rt.Subtasks.Edit).Methods("PATCH")
	api.HandleFunc("/subtasks/{id:[0-9]+}", rt.Subtasks.Remove).Methods("DELETE")
	api.HandleFunc("/subtasks/{id:[0-9]+}/relocate", rt.Subtasks.Relocate).Methods("POST")

	api.HandleFunc("/tags/{id:[0-9]+}", rt.Tags.Update).Methods("PATCH")
	api.HandleFunc("/tags/{id:[0-9]+}", rt.Tags.Delete).Methods("DELETE")

	return r
}
