package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dailylog/internal/diary"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *diary.Service, activity ActivityLister, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, activity)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Diary documents.
	r.Get("/diary", h.GetDiary)
	r.Get("/diary/{date}", h.GetDiary)

	// Activity journal.
	r.Get("/activity", h.ListActivity)

	// Change notifications from outside the watched vault.
	r.Post("/events", h.PostEvent)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
