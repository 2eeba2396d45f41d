package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	apperrors "flowtimer/internal/errors"
	"flowtimer/internal/model"
	"flowtimer/internal/report"
	"flowtimer/internal/repository"
	"flowtimer/internal/stats"
)

const (
	MaxRangeDays     = 365
	DefaultRangeDays = 7
	maxSessionLimit  = 200
)

// HistorySource hands session history to the stats layer.
type HistorySource interface {
	FetchHistory(ctx context.Context, userID string, days int, now time.Time) (model.History, error)
}

type StatsService struct {
	history     HistorySource
	sessions    *repository.SessionRepository
	preferences *repository.PreferencesRepository
	users       *repository.UserRepository
	clock       func() time.Time
}

func NewStatsService(
	history HistorySource,
	sessions *repository.SessionRepository,
	preferences *repository.PreferencesRepository,
	users *repository.UserRepository,
	clock func() time.Time,
) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	return &StatsService{
		history:     history,
		sessions:    sessions,
		preferences: preferences,
		users:       users,
		clock:       clock,
	}
}

// Dashboard summarizes the last days days as seen from loc. Streaks look
// back further than the range so a long run is not cut off by it.
func (s *StatsService) Dashboard(ctx context.Context, userID string, days int, loc *time.Location) (*stats.Dashboard, *apperrors.APIError) {
	if days < 1 || days > MaxRangeDays {
		return nil, apperrors.BadRequest("invalid_range", "days must be between 1 and 365")
	}
	now := s.now(loc)

	history, err := s.history.FetchHistory(ctx, userID, stats.MaxLookbackDays+1, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load history")
	}
	goal, apiErr := s.dailyGoal(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	dashboard := stats.Summarize(model.History{
		Sessions: stats.InRange(history.Sessions, days, now),
		Daily:    history.Daily,
	}, days, goal, now)
	return &dashboard, nil
}

func (s *StatsService) Calendar(ctx context.Context, userID string, year int, month time.Month, loc *time.Location) (*stats.Month, *apperrors.APIError) {
	if month < time.January || month > time.December || year < 1970 || year > 9999 {
		return nil, apperrors.BadRequest("invalid_month", "year and month must name a calendar month")
	}
	if loc == nil {
		loc = time.Local
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	sessions, err := s.sessions.ListBetween(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load sessions")
	}
	matrix := stats.MonthMatrix(sessions, year, month, loc)
	return &matrix, nil
}

// Report renders the dashboard and the range's sessions as a PDF.
func (s *StatsService) Report(ctx context.Context, userID string, days int, loc *time.Location) ([]byte, *apperrors.APIError) {
	dashboard, apiErr := s.Dashboard(ctx, userID, days, loc)
	if apiErr != nil {
		return nil, apiErr
	}
	now := s.now(loc)
	history, err := s.history.FetchHistory(ctx, userID, days, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load history")
	}

	owner := ""
	if s.users != nil {
		if user, err := s.users.GetByID(ctx, userID); err == nil {
			owner = user.Email
		}
	}

	sessions := history.Sessions
	newestFirst := make([]model.SessionRecord, len(sessions))
	for i := range sessions {
		newestFirst[len(sessions)-1-i] = sessions[i]
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, report.Input{
		Owner:     owner,
		Dashboard: *dashboard,
		Sessions:  newestFirst,
		Location:  now.Location(),
	}); err != nil {
		return nil, apperrors.Wrap(err, "failed to render report")
	}
	return buf.Bytes(), nil
}

func (s *StatsService) ListSessions(ctx context.Context, userID string, limit int) ([]model.SessionRecord, *apperrors.APIError) {
	if limit <= 0 || limit > maxSessionLimit {
		limit = 50
	}
	sessions, err := s.sessions.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get sessions")
	}
	return sessions, nil
}

// RateSession stores a 1..5 productivity rating on a finished pomodoro.
func (s *StatsService) RateSession(ctx context.Context, userID, sessionID string, rating int) (*model.SessionRecord, *apperrors.APIError) {
	if !model.ValidRating(rating) {
		return nil, apperrors.BadRequest("invalid_rating", "rating must be between 1 and 5")
	}
	if err := s.sessions.Rate(ctx, userID, sessionID, rating); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("session_not_found", "pomodoro session not found")
		}
		return nil, apperrors.Wrap(err, "failed to rate session")
	}
	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load session")
	}
	return session, nil
}

func (s *StatsService) GetPreferences(ctx context.Context, userID string) (*model.Preferences, *apperrors.APIError) {
	prefs, err := s.preferences.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		defaults := model.DefaultPreferences(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get preferences")
	}
	return prefs, nil
}

// UpdateDailyGoal changes the daily focus goal. Durations are owned by the
// timer and change through it.
func (s *StatsService) UpdateDailyGoal(ctx context.Context, userID string, minutes int) (*model.Preferences, *apperrors.APIError) {
	if minutes < 1 || minutes > 24*60 {
		return nil, apperrors.BadRequest("invalid_goal", "daily focus goal must be between 1 and 1440 minutes")
	}
	if err := s.preferences.SaveDailyGoal(ctx, userID, minutes, s.clock().UTC()); err != nil {
		return nil, apperrors.Wrap(err, "failed to save preferences")
	}
	return s.GetPreferences(ctx, userID)
}

func (s *StatsService) dailyGoal(ctx context.Context, userID string) (int, *apperrors.APIError) {
	if s.preferences == nil {
		return model.DefaultDailyFocusGoalMinutes, nil
	}
	prefs, apiErr := s.GetPreferences(ctx, userID)
	if apiErr != nil {
		return 0, apiErr
	}
	return prefs.DailyFocusGoalMinutes, nil
}

func (s *StatsService) now(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return s.clock().In(loc)
}
