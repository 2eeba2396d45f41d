package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Preferences struct {
	UserID                string         `json:"userId"`
	Durations             DurationConfig `json:"durations"`
	DailyFocusGoalMinutes int            `json:"dailyFocusGoalMinutes"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:                userID,
		Durations:             DefaultDurations(),
		DailyFocusGoalMinutes: DefaultDailyFocusGoalMinutes,
	}
}
