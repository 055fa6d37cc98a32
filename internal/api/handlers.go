package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dailylog/internal/apperr"
	"github.com/starford/dailylog/internal/diary"
	"github.com/starford/dailylog/internal/models"
)

// ActivityLister reads the activity journal.
type ActivityLister interface {
	ListActivity(date string, limit int) ([]models.Activity, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc      *diary.Service
	activity ActivityLister
}

// NewHandler creates a new Handler.
func NewHandler(svc *diary.Service, activity ActivityLister) *Handler {
	return &Handler{svc: svc, activity: activity}
}

// day parses a YYYY-MM-DD value; empty means today on the service clock.
func (h *Handler) day(raw string) (time.Time, error) {
	now := h.svc.Now()
	if raw == "" {
		return now, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, now.Location())
}

// GetDiary handles GET /api/diary and GET /api/diary/{date}.
//
//	@Summary		Get the daily log for a date (default today)
//	@Tags			diary
//	@Produce		json
//	@Param			date	path		string	false	"Date (YYYY-MM-DD)"
//	@Success		200		{object}	DiaryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diary/{date} [get]
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	path, content, err := h.svc.Read(r.Context(), day)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("read diary failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, DiaryResponse{
		Date:    day.Format(time.DateOnly),
		Path:    path,
		Content: content,
	})
}

// ListActivity handles GET /api/activity.
//
//	@Summary		List journal entries, newest first
//	@Tags			activity
//	@Produce		json
//	@Param			date	query		string	false	"Date (YYYY-MM-DD); empty lists all days"
//	@Param			limit	query		int		false	"Max rows"
//	@Success		200		{object}	ActivityResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/activity [get]
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	rows, err := h.activity.ListActivity(date, limit)
	if err != nil {
		slog.Error("list activity failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Activity: rows})
}

// PostEvent handles POST /api/events.
//
//	@Summary		Record a created/modified change for a vault file
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EventRequest	true	"Change event"
//	@Success		200		{object}	EventResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	kind, ok := models.ParseKind(req.Kind)
	if req.Path == "" || !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("path and kind (created|modified) are required"))
		return
	}

	out, err := h.svc.Record(r.Context(), models.ChangeEvent{Path: req.Path, Kind: kind})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidEvent) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("record event failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}
