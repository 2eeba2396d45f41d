package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flowtimer/internal/model"
)

type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, pomodoro_minutes, short_break_minutes, long_break_minutes,
		        daily_focus_goal_minutes, updated_at
		 FROM preferences
		 WHERE user_id = ?`,
		userID,
	)

	prefs := model.Preferences{}
	var updatedAt string
	err := row.Scan(
		&prefs.UserID,
		&prefs.Durations.Pomodoro,
		&prefs.Durations.ShortBreak,
		&prefs.Durations.LongBreak,
		&prefs.DailyFocusGoalMinutes,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if prefs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse preferences updated_at: %w", err)
	}
	return &prefs, nil
}

// Upsert writes every preference column for prefs.UserID.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *model.Preferences) error {
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO preferences (
			user_id, pomodoro_minutes, short_break_minutes, long_break_minutes,
			daily_focus_goal_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			pomodoro_minutes = excluded.pomodoro_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			daily_focus_goal_minutes = excluded.daily_focus_goal_minutes,
			updated_at = excluded.updated_at`,
		prefs.UserID,
		prefs.Durations.Pomodoro,
		prefs.Durations.ShortBreak,
		prefs.Durations.LongBreak,
		prefs.DailyFocusGoalMinutes,
		formatTime(prefs.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// SaveDurations updates only the duration columns, creating the row with a
// default daily goal when missing.
func (r *PreferencesRepository) SaveDurations(ctx context.Context, userID string, durations model.DurationConfig) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO preferences (
			user_id, pomodoro_minutes, short_break_minutes, long_break_minutes,
			daily_focus_goal_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			pomodoro_minutes = excluded.pomodoro_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			updated_at = excluded.updated_at`,
		userID,
		durations.Pomodoro,
		durations.ShortBreak,
		durations.LongBreak,
		model.DefaultDailyFocusGoalMinutes,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save durations: %w", err)
	}
	return nil
}

// SaveDailyGoal updates only the daily goal, creating the row with default
// durations when missing.
func (r *PreferencesRepository) SaveDailyGoal(ctx context.Context, userID string, minutes int, updatedAt time.Time) error {
	defaults := model.DefaultDurations()
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO preferences (
			user_id, pomodoro_minutes, short_break_minutes, long_break_minutes,
			daily_focus_goal_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_focus_goal_minutes = excluded.daily_focus_goal_minutes,
			updated_at = excluded.updated_at`,
		userID,
		defaults.Pomodoro,
		defaults.ShortBreak,
		defaults.LongBreak,
		minutes,
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save daily goal: %w", err)
	}
	return nil
}

// DurationStore binds the repository to one user for the timer machine.
func (r *PreferencesRepository) DurationStore(userID string) *UserDurationStore {
	return &UserDurationStore{repo: r, userID: userID}
}

type UserDurationStore struct {
	repo   *PreferencesRepository
	userID string
}

func (s *UserDurationStore) LoadDurations(ctx context.Context) (model.DurationConfig, error) {
	prefs, err := s.repo.Get(ctx, s.userID)
	if err != nil {
		return model.DurationConfig{}, err
	}
	return prefs.Durations, nil
}

func (s *UserDurationStore) SaveDurations(ctx context.Context, durations model.DurationConfig) error {
	return s.repo.SaveDurations(ctx, s.userID, durations)
}
