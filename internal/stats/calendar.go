package stats

import (
	"time"

	"flowtimer/internal/model"
)

type DayCell struct {
	Day     int `json:"day"`
	Seconds int `json:"seconds"`
}

// Month is a Sunday-first calendar grid. Every week has exactly seven slots;
// nil slots pad the first and last week.
type Month struct {
	Year         int          `json:"year"`
	Month        time.Month   `json:"month"`
	Label        string       `json:"label"`
	TotalSeconds int          `json:"totalSeconds"`
	Weeks        [][]*DayCell `json:"weeks"`
}

// MonthMatrix sums pomodoro time per local calendar day of the given month.
func MonthMatrix(sessions []model.SessionRecord, year int, month time.Month, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	perDay := make(map[int]int)
	total := 0
	for _, session := range sessions {
		if session.Mode != model.ModePomodoro {
			continue
		}
		started := session.StartedAt.In(loc)
		if started.Year() != first.Year() || started.Month() != first.Month() {
			continue
		}
		perDay[started.Day()] += session.DurationSeconds
		total += session.DurationSeconds
	}

	weeks := make([][]*DayCell, 0, 6)
	week := make([]*DayCell, int(first.Weekday()), 7)
	for day := 1; day <= daysInMonth; day++ {
		week = append(week, &DayCell{Day: day, Seconds: perDay[day]})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]*DayCell, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, nil)
		}
		weeks = append(weeks, week)
	}

	return Month{
		Year:         first.Year(),
		Month:        first.Month(),
		Label:        first.Format("January 2006"),
		TotalSeconds: total,
		Weeks:        weeks,
	}
}
