package model

import "time"

// DayLayout is the calendar-day key used by daily aggregates.
const DayLayout = "2006-01-02"

const (
	MinRating = 1
	MaxRating = 5
)

// SessionRecord is a completed phase as handed to the session recorder.
// ID and UserID are assigned by the recorder.
type SessionRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Mode            Mode      `json:"mode"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	Intention       *string   `json:"intention,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DailyAggregate is one day of focus totals.
type DailyAggregate struct {
	Day           string `json:"day"`
	FocusSeconds  int    `json:"focusSeconds"`
	PomodoroCount int    `json:"pomodoroCount"`
}

// History is what the stats source hands back for a lookback window.
type History struct {
	Sessions []SessionRecord `json:"sessions"`
	Daily    []DailyAggregate `json:"daily"`
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
