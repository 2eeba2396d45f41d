package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowtimer/internal/model"
)

var now = time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)

func day(key string, focusSeconds int) model.DailyAggregate {
	return model.DailyAggregate{Day: key, FocusSeconds: focusSeconds}
}

func session(mode model.Mode, startedAt time.Time, seconds int) model.SessionRecord {
	return model.SessionRecord{
		Mode:            mode,
		StartedAt:       startedAt,
		EndedAt:         startedAt.Add(time.Duration(seconds) * time.Second),
		DurationSeconds: seconds,
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name  string
		daily []model.DailyAggregate
		want  int
	}{
		{"Empty history", nil, 0},
		{"Only today", []model.DailyAggregate{day("2024-01-03", 600)}, 1},
		{"Three consecutive days", []model.DailyAggregate{day("2024-01-01", 60), day("2024-01-02", 60), day("2024-01-03", 60)}, 3},
		{"Gap stops the walk", []model.DailyAggregate{day("2023-12-31", 60), day("2024-01-02", 60), day("2024-01-03", 60)}, 2},
		{"Today without record", []model.DailyAggregate{day("2024-01-01", 60), day("2024-01-02", 60)}, 0},
		{"Today with zero focus", []model.DailyAggregate{day("2024-01-02", 60), day("2024-01-03", 0)}, 0},
		{"Unordered input", []model.DailyAggregate{day("2024-01-03", 60), day("2024-01-01", 60), day("2024-01-02", 60)}, 3},
		{"Crosses year boundary", []model.DailyAggregate{day("2023-12-30", 1), day("2023-12-31", 1), day("2024-01-01", 1), day("2024-01-02", 1), day("2024-01-03", 1)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.daily, now))
		})
	}
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name  string
		daily []model.DailyAggregate
		want  int
	}{
		{"Empty history", nil, 0},
		{"Single day", []model.DailyAggregate{day("2023-11-10", 300)}, 1},
		{
			"Sparse history picks longest run",
			[]model.DailyAggregate{
				day("2023-10-01", 1), day("2023-10-02", 1), day("2023-10-03", 1), day("2023-10-04", 1),
				day("2023-12-01", 1), day("2023-12-02", 1),
				day("2024-01-03", 1),
			},
			4,
		},
		{
			"Inactive days break runs",
			[]model.DailyAggregate{day("2023-12-01", 1), day("2023-12-02", 0), day("2023-12-03", 1)},
			1,
		},
		{
			"Run ending today",
			[]model.DailyAggregate{day("2024-01-01", 1), day("2024-01-02", 1), day("2024-01-03", 1)},
			3,
		},
		{
			"Days beyond lookback are ignored",
			[]model.DailyAggregate{day("2021-01-01", 1), day("2021-01-02", 1), day("2021-01-03", 1), day("2024-01-02", 1)},
			1,
		},
		{
			"Duplicate records count once",
			[]model.DailyAggregate{day("2024-01-01", 1), day("2024-01-01", 5), day("2024-01-02", 1)},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongestStreak(tt.daily, now))
		})
	}
}

func TestConsistency(t *testing.T) {
	assert.Equal(t, 0, Consistency(nil, 7, now))
	assert.Equal(t, 0, Consistency([]model.DailyAggregate{}, 7, now))
	assert.Equal(t, 14, Consistency([]model.DailyAggregate{day("2024-01-01", 600)}, 7, now))
	assert.Equal(t, 0, Consistency([]model.DailyAggregate{day("2024-01-01", 0)}, 7, now))
	assert.Equal(t, 0, Consistency([]model.DailyAggregate{day("2023-12-01", 600)}, 7, now))
	assert.Equal(t, 0, Consistency([]model.DailyAggregate{day("2024-01-01", 600)}, 0, now))

	full := []model.DailyAggregate{}
	for i := 0; i < 7; i++ {
		full = append(full, day(now.AddDate(0, 0, -i).Format(model.DayLayout), 60))
	}
	assert.Equal(t, 100, Consistency(full, 7, now))
	assert.Equal(t, 50, Consistency(full[:7], 14, now))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, LevelInfo{Level: 1, Current: 0, Needed: 150, Progress: 0}, Level(0))
	assert.Equal(t, LevelInfo{Level: 2, Current: 0, Needed: 210, Progress: 0}, Level(150))
	assert.Equal(t, LevelInfo{Level: 1, Current: 75, Needed: 150, Progress: 0.5}, Level(75))
	assert.Equal(t, LevelInfo{Level: 3, Current: 0, Needed: 294, Progress: 0}, Level(360))
	assert.Equal(t, 1, Level(-20).Level)

	assert.Equal(t, LevelInfo{Level: MaxLevel, Progress: 1}, Level(1<<40))
}

func TestLevelIsMonotonic(t *testing.T) {
	previous := Level(0)
	for minutes := 1; minutes < 20000; minutes += 37 {
		current := Level(minutes)
		require.GreaterOrEqual(t, current.Level, previous.Level, "minutes %d", minutes)
		assert.GreaterOrEqual(t, current.Progress, 0.0)
		assert.Less(t, current.Progress, 1.0)
		previous = current
	}
}

func TestMonthMatrixThirtyDayMonthStartingTuesday(t *testing.T) {
	year, month := 2020, time.September
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, first.Weekday())

	sessions := []model.SessionRecord{
		session(model.ModePomodoro, time.Date(2020, 9, 1, 9, 0, 0, 0, time.UTC), 1500),
		session(model.ModePomodoro, time.Date(2020, 9, 1, 10, 0, 0, 0, time.UTC), 1500),
		session(model.ModeShortBreak, time.Date(2020, 9, 1, 9, 25, 0, 0, time.UTC), 300),
		session(model.ModePomodoro, time.Date(2020, 9, 30, 22, 0, 0, 0, time.UTC), 600),
		session(model.ModePomodoro, time.Date(2020, 10, 1, 9, 0, 0, 0, time.UTC), 1500),
	}

	matrix := MonthMatrix(sessions, year, month, time.UTC)

	startOffset := int(first.Weekday())
	wantRows := (startOffset + 30 + 6) / 7
	require.Len(t, matrix.Weeks, wantRows)
	for i, week := range matrix.Weeks {
		require.Len(t, week, 7, "week %d", i)
		for j, cell := range week {
			if cell == nil {
				assert.True(t, i == 0 || i == len(matrix.Weeks)-1, "nil padding at row %d col %d", i, j)
			}
		}
	}

	assert.Nil(t, matrix.Weeks[0][0])
	assert.Nil(t, matrix.Weeks[0][1])
	require.NotNil(t, matrix.Weeks[0][2])
	assert.Equal(t, DayCell{Day: 1, Seconds: 3000}, *matrix.Weeks[0][2])
	assert.Equal(t, 3600, matrix.TotalSeconds)
	assert.Equal(t, "September 2020", matrix.Label)
	assert.Equal(t, time.September, matrix.Month)
}

func TestMonthMatrixUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	sessions := []model.SessionRecord{
		session(model.ModePomodoro, time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC), 1500),
	}

	utc := MonthMatrix(sessions, 2024, time.January, time.UTC)
	local := MonthMatrix(sessions, 2024, time.February, loc)

	assert.Equal(t, 1500, utc.TotalSeconds)
	assert.Equal(t, 1500, local.TotalSeconds)
	assert.Equal(t, 1500, local.Weeks[0][int(time.Date(2024, 2, 1, 0, 0, 0, 0, loc).Weekday())].Seconds)
}

func TestMonthMatrixFullFirstRow(t *testing.T) {
	// September 2024 starts on a Sunday.
	matrix := MonthMatrix(nil, 2024, time.September, time.UTC)
	require.NotNil(t, matrix.Weeks[0][0])
	assert.Equal(t, 1, matrix.Weeks[0][0].Day)
	assert.Len(t, matrix.Weeks, 5)
	assert.Equal(t, 0, matrix.TotalSeconds)
}

func TestAverageLengthAndFocusRatio(t *testing.T) {
	start := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	sessions := []model.SessionRecord{
		session(model.ModePomodoro, start, 1500),
		session(model.ModePomodoro, start.Add(time.Hour), 1200),
		session(model.ModeShortBreak, start.Add(30*time.Minute), 300),
	}

	assert.Equal(t, 23, AverageLength(sessions))
	assert.Equal(t, 90, FocusRatio(sessions))

	assert.Equal(t, 0, AverageLength(nil))
	assert.Equal(t, 0, FocusRatio(nil))
	assert.Equal(t, 0, AverageLength(sessions[2:]))
	assert.Equal(t, 0, FocusRatio(sessions[2:]))
}

func TestHourlyHistogram(t *testing.T) {
	sessions := []model.SessionRecord{
		session(model.ModePomodoro, time.Date(2024, 1, 3, 9, 5, 0, 0, time.UTC), 1500),
		session(model.ModePomodoro, time.Date(2024, 1, 2, 9, 40, 0, 0, time.UTC), 1500),
		session(model.ModeLongBreak, time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC), 900),
		session(model.ModePomodoro, time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC), 600),
	}

	hours := HourlyHistogram(sessions, time.UTC)
	assert.Equal(t, 3000, hours[9])
	assert.Equal(t, 600, hours[23])

	shifted := HourlyHistogram(sessions, time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, 3000, shifted[11])
	assert.Equal(t, 600, shifted[1])
}

func TestBadges(t *testing.T) {
	assert.Empty(t, Badges(BadgeInput{}))

	badges := Badges(BadgeInput{TotalFocusMinutes: 1200, Streak: 7, LongestStreak: 14, PomodoroCount: 60})
	ids := make([]string, 0, len(badges))
	for _, badge := range badges {
		ids = append(ids, badge.ID)
	}
	assert.Equal(t, []string{"100min", "1000min", "streak3", "streak7", "streak14", "50pomo"}, ids)
}

func TestTimelineZeroFillsGaps(t *testing.T) {
	timeline := Timeline([]model.DailyAggregate{day("2024-01-01", 600), day("2024-01-03", 300)}, 4, now)

	require.Len(t, timeline, 4)
	assert.Equal(t, "2023-12-31", timeline[0].Day)
	assert.Equal(t, 0, timeline[0].FocusSeconds)
	assert.Equal(t, 600, timeline[1].FocusSeconds)
	assert.Equal(t, "2024-01-02", timeline[2].Day)
	assert.Equal(t, 300, timeline[3].FocusSeconds)
}

func TestSummarize(t *testing.T) {
	history := model.History{
		Sessions: []model.SessionRecord{
			session(model.ModePomodoro, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 1500),
			session(model.ModeShortBreak, time.Date(2024, 1, 3, 9, 25, 0, 0, time.UTC), 300),
			session(model.ModePomodoro, time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC), 1500),
			session(model.ModePomodoro, time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), 1500),
		},
		Daily: []model.DailyAggregate{
			{Day: "2024-01-02", FocusSeconds: 1500, PomodoroCount: 1},
			{Day: "2024-01-03", FocusSeconds: 3000, PomodoroCount: 2},
		},
	}

	dashboard := Summarize(history, 7, 100, now)

	assert.Equal(t, 75, dashboard.TotalFocusMinutes)
	assert.Equal(t, 2, dashboard.TodayPomodoros)
	assert.Equal(t, 50, dashboard.TodayFocusMinutes)
	assert.InDelta(t, 0.5, dashboard.GoalProgress, 1e-9)
	assert.Equal(t, 2, dashboard.Streak)
	assert.Equal(t, 2, dashboard.LongestStreak)
	assert.Equal(t, 29, dashboard.Consistency)
	assert.Equal(t, 25, dashboard.AverageLengthMinutes)
	assert.Equal(t, 94, dashboard.FocusRatio)
	assert.Equal(t, 1, dashboard.Level.Level)
	assert.Len(t, dashboard.Timeline, 7)
	assert.Equal(t, 3000, dashboard.Hourly[9])
	assert.Empty(t, dashboard.Badges)
	assert.True(t, dashboard.GeneratedAt.Equal(now))
}

func TestSummarizeIsDeterministic(t *testing.T) {
	history := model.History{
		Sessions: []model.SessionRecord{session(model.ModePomodoro, now.Add(-time.Hour), 1500)},
		Daily:    []model.DailyAggregate{day("2024-01-03", 1500)},
	}
	assert.Equal(t, Summarize(history, 30, 120, now), Summarize(history, 30, 120, now))
}

func TestInRangeStartsAtLocalMidnight(t *testing.T) {
	sessions := []model.SessionRecord{
		session(model.ModePomodoro, time.Date(2023, 12, 27, 23, 59, 0, 0, time.UTC), 1500),
		session(model.ModePomodoro, time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), 1500),
		session(model.ModeShortBreak, now.Add(-time.Minute), 300),
	}

	kept := InRange(sessions, 7, now)
	require.Len(t, kept, 2)
	assert.Equal(t, sessions[1].StartedAt, kept[0].StartedAt)

	assert.Len(t, InRange(sessions, 1, now), 1)
}
