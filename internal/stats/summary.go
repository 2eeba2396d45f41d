package stats

import (
	"math"
	"time"

	"flowtimer/internal/model"
)

// InRange keeps the sessions that started on one of the last days local
// days, today included.
func InRange(sessions []model.SessionRecord, days int, now time.Time) []model.SessionRecord {
	from := startOfDay(now).AddDate(0, 0, -(days - 1))
	kept := make([]model.SessionRecord, 0, len(sessions))
	for _, session := range sessions {
		if !session.StartedAt.Before(from) {
			kept = append(kept, session)
		}
	}
	return kept
}

// AverageLength is the mean pomodoro length in whole minutes.
func AverageLength(sessions []model.SessionRecord) int {
	count, seconds := 0, 0
	for _, session := range sessions {
		if session.Mode == model.ModePomodoro {
			count++
			seconds += session.DurationSeconds
		}
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(seconds) / float64(count*60)))
}

// FocusRatio is pomodoro time as a rounded percentage of all logged time.
func FocusRatio(sessions []model.SessionRecord) int {
	focus, total := 0, 0
	for _, session := range sessions {
		total += session.DurationSeconds
		if session.Mode == model.ModePomodoro {
			focus += session.DurationSeconds
		}
	}
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(focus) / float64(total) * 100))
}

// HourlyHistogram sums pomodoro seconds by local start hour.
func HourlyHistogram(sessions []model.SessionRecord, loc *time.Location) [24]int {
	if loc == nil {
		loc = time.UTC
	}
	var hours [24]int
	for _, session := range sessions {
		if session.Mode == model.ModePomodoro {
			hours[session.StartedAt.In(loc).Hour()] += session.DurationSeconds
		}
	}
	return hours
}

func TotalFocusSeconds(sessions []model.SessionRecord) int {
	total := 0
	for _, session := range sessions {
		if session.Mode == model.ModePomodoro {
			total += session.DurationSeconds
		}
	}
	return total
}

func PomodoroCount(sessions []model.SessionRecord) int {
	count := 0
	for _, session := range sessions {
		if session.Mode == model.ModePomodoro {
			count++
		}
	}
	return count
}

// Today returns the number of pomodoros and focus seconds started on now's
// calendar day.
func Today(sessions []model.SessionRecord, now time.Time) (pomodoros, focusSeconds int) {
	today := dayKey(now)
	for _, session := range sessions {
		if session.Mode != model.ModePomodoro || dayKey(session.StartedAt.In(now.Location())) != today {
			continue
		}
		pomodoros++
		focusSeconds += session.DurationSeconds
	}
	return pomodoros, focusSeconds
}

type Badge struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type BadgeInput struct {
	TotalFocusMinutes int
	Streak            int
	LongestStreak     int
	PomodoroCount     int
}

func Badges(input BadgeInput) []Badge {
	badges := []Badge{}
	if input.TotalFocusMinutes >= 100 {
		badges = append(badges, Badge{ID: "100min", Label: "100m Focus"})
	}
	if input.TotalFocusMinutes >= 1000 {
		badges = append(badges, Badge{ID: "1000min", Label: "1000m Focus"})
	}
	if input.Streak >= 3 {
		badges = append(badges, Badge{ID: "streak3", Label: "3 Day Streak"})
	}
	if input.Streak >= 7 {
		badges = append(badges, Badge{ID: "streak7", Label: "7 Day Streak"})
	}
	if input.LongestStreak >= 14 {
		badges = append(badges, Badge{ID: "streak14", Label: "14 Day Streak"})
	}
	if input.PomodoroCount >= 50 {
		badges = append(badges, Badge{ID: "50pomo", Label: "50 Pomodoros"})
	}
	if input.PomodoroCount >= 200 {
		badges = append(badges, Badge{ID: "200pomo", Label: "200 Pomodoros"})
	}
	return badges
}

// Dashboard is the full set of metrics shown for a lookback window.
type Dashboard struct {
	RangeDays            int                    `json:"rangeDays"`
	TotalFocusMinutes    int                    `json:"totalFocusMinutes"`
	TodayPomodoros       int                    `json:"todayPomodoros"`
	TodayFocusMinutes    int                    `json:"todayFocusMinutes"`
	DailyGoalMinutes     int                    `json:"dailyGoalMinutes"`
	GoalProgress         float64                `json:"goalProgress"`
	Streak               int                    `json:"streak"`
	LongestStreak        int                    `json:"longestStreak"`
	Consistency          int                    `json:"consistency"`
	AverageLengthMinutes int                    `json:"averageLengthMinutes"`
	FocusRatio           int                    `json:"focusRatio"`
	Level                LevelInfo              `json:"level"`
	Badges               []Badge                `json:"badges"`
	Hourly               [24]int                `json:"hourly"`
	Timeline             []model.DailyAggregate `json:"timeline"`
	GeneratedAt          time.Time              `json:"generatedAt"`
}

// Summarize builds the dashboard for history covering rangeDays days.
func Summarize(history model.History, rangeDays, dailyGoalMinutes int, now time.Time) Dashboard {
	totalFocusMinutes := int(math.Round(float64(TotalFocusSeconds(history.Sessions)) / 60))
	todayPomodoros, todayFocusSeconds := Today(history.Sessions, now)
	streak := Streak(history.Daily, now)
	longest := LongestStreak(history.Daily, now)

	goalProgress := 0.0
	if dailyGoalMinutes > 0 {
		goalProgress = math.Min(float64(todayFocusSeconds)/float64(dailyGoalMinutes*60), 1)
	}

	return Dashboard{
		RangeDays:            rangeDays,
		TotalFocusMinutes:    totalFocusMinutes,
		TodayPomodoros:       todayPomodoros,
		TodayFocusMinutes:    todayFocusSeconds / 60,
		DailyGoalMinutes:     dailyGoalMinutes,
		GoalProgress:         goalProgress,
		Streak:               streak,
		LongestStreak:        longest,
		Consistency:          Consistency(history.Daily, rangeDays, now),
		AverageLengthMinutes: AverageLength(history.Sessions),
		FocusRatio:           FocusRatio(history.Sessions),
		Level:                Level(totalFocusMinutes),
		Badges: Badges(BadgeInput{
			TotalFocusMinutes: totalFocusMinutes,
			Streak:            streak,
			LongestStreak:     longest,
			PomodoroCount:     PomodoroCount(history.Sessions),
		}),
		Hourly:      HourlyHistogram(history.Sessions, now.Location()),
		Timeline:    Timeline(history.Daily, rangeDays, now),
		GeneratedAt: now,
	}
}
