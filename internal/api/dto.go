package api

import (
	"github.com/starford/dailylog/internal/diary"
	"github.com/starford/dailylog/internal/models"
)

// DiaryResponse is the payload for a single daily log.
type DiaryResponse struct {
	Date    string `json:"date" example:"2025-01-20" validate:"required"`
	Path    string `json:"path" example:"日记/2025-01-20.md" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ActivityResponse wraps journal rows.
type ActivityResponse struct {
	Activity []models.Activity `json:"activity" validate:"required"`
}

// EventRequest is the request body for submitting a change event.
type EventRequest struct {
	Path string `json:"path" example:"projects/plan.md" validate:"required"`
	Kind string `json:"kind" example:"created" enums:"created,modified" validate:"required"`
}

// EventResponse reports what the diary service did with an event.
type EventResponse = diary.Outcome
