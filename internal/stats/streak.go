// Package stats derives display metrics from session history. Every function
// is pure: callers supply the records and the reference time.
package stats

import (
	"math"
	"sort"
	"time"

	"flowtimer/internal/model"
)

// MaxLookbackDays bounds how far back LongestStreak scans.
const MaxLookbackDays = 400

// Streak counts consecutive active days ending today. A day without a record
// counts as inactive, so a quiet today yields 0.
func Streak(daily []model.DailyAggregate, now time.Time) int {
	active := activeDays(daily)
	today := startOfDay(now)

	streak := 0
	for i := 0; i < len(active); i++ {
		if _, ok := active[dayKey(today.AddDate(0, 0, -i))]; !ok {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive active days within
// MaxLookbackDays of today. Input may be sparse and unordered.
func LongestStreak(daily []model.DailyAggregate, now time.Time) int {
	today := startOfDay(now)
	oldest := today.AddDate(0, 0, -MaxLookbackDays)

	days := make([]time.Time, 0, len(daily))
	for key := range activeDays(daily) {
		day, err := time.ParseInLocation(model.DayLayout, key, now.Location())
		if err != nil || day.Before(oldest) || day.After(today) {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 0, 0
	for i, day := range days {
		if i > 0 && dayKey(days[i-1].AddDate(0, 0, 1)) == dayKey(day) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// Consistency is the rounded percentage of the last rangeDays days, today
// included, that had any focus time.
func Consistency(daily []model.DailyAggregate, rangeDays int, now time.Time) int {
	if len(daily) == 0 || rangeDays <= 0 {
		return 0
	}
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(rangeDays - 1))

	active := 0
	for key := range activeDays(daily) {
		day, err := time.ParseInLocation(model.DayLayout, key, now.Location())
		if err != nil || day.Before(first) || day.After(today) {
			continue
		}
		active++
	}
	return int(math.Round(float64(active) / float64(rangeDays) * 100))
}

// Timeline returns one aggregate per day for the last rangeDays days, oldest
// first, with zero-filled gaps.
func Timeline(daily []model.DailyAggregate, rangeDays int, now time.Time) []model.DailyAggregate {
	if rangeDays <= 0 {
		return nil
	}
	byDay := make(map[string]model.DailyAggregate, len(daily))
	for _, record := range daily {
		existing := byDay[record.Day]
		existing.Day = record.Day
		existing.FocusSeconds += record.FocusSeconds
		existing.PomodoroCount += record.PomodoroCount
		byDay[record.Day] = existing
	}

	today := startOfDay(now)
	timeline := make([]model.DailyAggregate, 0, rangeDays)
	for i := rangeDays - 1; i >= 0; i-- {
		key := dayKey(today.AddDate(0, 0, -i))
		entry, ok := byDay[key]
		if !ok {
			entry = model.DailyAggregate{Day: key}
		}
		timeline = append(timeline, entry)
	}
	return timeline
}

func activeDays(daily []model.DailyAggregate) map[string]struct{} {
	active := make(map[string]struct{}, len(daily))
	for _, record := range daily {
		if record.FocusSeconds > 0 {
			active[record.Day] = struct{}{}
		}
	}
	return active
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format(model.DayLayout)
}
