package models

import "time"

// Exercise is one movement of a routine. Binding rules double as the schema for LLM output.
type Exercise struct {
	Name   string   `json:"name" binding:"required"`
	Sets   int      `json:"sets" binding:"gt=0"`
	Reps   int      `json:"reps" binding:"gt=0"`
	Weight *float64 `json:"weight,omitempty" binding:"omitempty,gte=0"`
	Rest   *int     `json:"rest,omitempty" binding:"omitempty,gte=0"`
	Notes  string   `json:"notes,omitempty"`
}

// Routine is a structured workout plan.
type Routine struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Duration    int        `json:"duration" binding:"gt=0"`
	Exercises   []Exercise `json:"exercises" binding:"required,min=1,dive"`
}

// Routine sources.
const (
	RoutineSourceAI     = "ai"
	RoutineSourceManual = "manual"
)

// SavedRoutine is a routine kept in a user's library.
type SavedRoutine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Routine
}

// RoutinePreferences are the answers collected by the routine generator questionnaire.
type RoutinePreferences struct {
	Goal       string   `json:"goal" binding:"required"`
	Experience string   `json:"experience" binding:"required"`
	Frequency  string   `json:"frequency" binding:"required"`
	Duration   int      `json:"duration" binding:"gt=0"`
	Equipment  []string `json:"equipment"`
	Focus      []string `json:"focus"`
}
