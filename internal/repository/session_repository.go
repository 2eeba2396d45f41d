package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flowtimer/internal/model"
)

const sessionColumns = `id, user_id, mode, started_at, ended_at, duration_seconds, intention, rating, created_at`

type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create stores a completed phase. ID and CreatedAt are filled in when empty.
func (r *SessionRepository) Create(ctx context.Context, userID string, record *model.SessionRecord) error {
	if !record.Mode.Valid() {
		return fmt.Errorf("create session: unknown mode %q", record.Mode)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	record.UserID = userID

	var intention interface{}
	if record.Intention != nil && *record.Intention != "" {
		intention = *record.Intention
	}
	var rating interface{}
	if record.Rating != nil {
		rating = *record.Rating
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO focus_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.Mode,
		formatTime(record.StartedAt),
		formatTime(record.EndedAt),
		record.DurationSeconds,
		intention,
		rating,
		formatTime(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, userID, id string) (*model.SessionRecord, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanSession(row)
}

// ListRecent returns the newest sessions first.
func (r *SessionRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.SessionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE user_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return collectSessions(rows, limit)
}

// ListBetween returns sessions started in [from, to), oldest first.
func (r *SessionRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]model.SessionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM focus_sessions
		 WHERE user_id = ? AND started_at >= ? AND started_at < ?
		 ORDER BY started_at ASC`,
		userID,
		formatTime(from),
		formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions between: %w", err)
	}
	return collectSessions(rows, 0)
}

// FetchHistory loads the sessions of the last days calendar days (today
// included, in now's location) and their per-day pomodoro totals.
func (r *SessionRepository) FetchHistory(ctx context.Context, userID string, days int, now time.Time) (model.History, error) {
	if days < 1 {
		days = 1
	}
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	to := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	sessions, err := r.ListBetween(ctx, userID, from, to)
	if err != nil {
		return model.History{}, fmt.Errorf("fetch history: %w", err)
	}

	byDay := make(map[string]*model.DailyAggregate)
	daily := make([]model.DailyAggregate, 0)
	order := make([]string, 0)
	for i := range sessions {
		session := &sessions[i]
		if session.Mode != model.ModePomodoro {
			continue
		}
		key := session.StartedAt.In(now.Location()).Format(model.DayLayout)
		aggregate, ok := byDay[key]
		if !ok {
			aggregate = &model.DailyAggregate{Day: key}
			byDay[key] = aggregate
			order = append(order, key)
		}
		aggregate.FocusSeconds += session.DurationSeconds
		aggregate.PomodoroCount++
	}
	for _, key := range order {
		daily = append(daily, *byDay[key])
	}

	return model.History{Sessions: sessions, Daily: daily}, nil
}

// Rate sets the productivity rating of a pomodoro owned by userID.
func (r *SessionRepository) Rate(ctx context.Context, userID, id string, rating int) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE focus_sessions
		 SET rating = ?
		 WHERE id = ? AND user_id = ? AND mode = ?`,
		rating,
		id,
		userID,
		model.ModePomodoro,
	)
	if err != nil {
		return fmt.Errorf("rate session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rate session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Recorder binds the repository to one user so it can serve as a timer
// session recorder.
func (r *SessionRepository) Recorder(userID string) *SessionRecorder {
	return &SessionRecorder{repo: r, userID: userID}
}

type SessionRecorder struct {
	repo   *SessionRepository
	userID string
}

func (s *SessionRecorder) RecordSession(ctx context.Context, record model.SessionRecord) error {
	return s.repo.Create(ctx, s.userID, &record)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func collectSessions(rows *sql.Rows, capacity int) ([]model.SessionRecord, error) {
	defer rows.Close()

	sessions := make([]model.SessionRecord, 0, capacity)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s scanner) (*model.SessionRecord, error) {
	session := model.SessionRecord{}
	var startedAt, endedAt, createdAt string
	var intention sql.NullString
	var rating sql.NullInt64
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.Mode,
		&startedAt,
		&endedAt,
		&session.DurationSeconds,
		&intention,
		&rating,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if session.EndedAt, err = parseTime(endedAt); err != nil {
		return nil, fmt.Errorf("parse session ended_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	if intention.Valid {
		value := intention.String
		session.Intention = &value
	}
	if rating.Valid {
		value := int(rating.Int64)
		session.Rating = &value
	}
	return &session, nil
}
