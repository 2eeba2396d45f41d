package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowtimer/internal/db"
	"flowtimer/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = db.RunMigrations(database, db.Migrations())
	require.NoError(t, err)
	return database
}

func pomodoro(start time.Time, seconds int) *model.SessionRecord {
	return &model.SessionRecord{
		Mode:            model.ModePomodoro,
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(seconds) * time.Second),
		DurationSeconds: seconds,
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	defer database.Close()

	applied, err := db.RunMigrations(database, db.Migrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_preferences.sql"}, applied)

	applied, err = db.RunMigrations(database, db.Migrations())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSessionRepositoryCreateAndList(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	start := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	intention := "write report"
	first := pomodoro(start, 1500)
	first.Intention = &intention
	require.NoError(t, repo.Create(ctx, "user-1", first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	breakRecord := &model.SessionRecord{
		Mode:            model.ModeShortBreak,
		StartedAt:       start.Add(25 * time.Minute),
		EndedAt:         start.Add(30 * time.Minute),
		DurationSeconds: 300,
	}
	require.NoError(t, repo.Create(ctx, "user-1", breakRecord))
	require.NoError(t, repo.Create(ctx, "user-2", pomodoro(start, 1500)))

	sessions, err := repo.ListRecent(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, model.ModeShortBreak, sessions[0].Mode)
	assert.Equal(t, first.ID, sessions[1].ID)
	require.NotNil(t, sessions[1].Intention)
	assert.Equal(t, intention, *sessions[1].Intention)
	assert.Nil(t, sessions[1].Rating)
	assert.True(t, sessions[1].StartedAt.Equal(start))

	limited, err := repo.ListRecent(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSessionRepositoryRejectsUnknownMode(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	record := pomodoro(time.Now(), 60)
	record.Mode = "nap"
	assert.Error(t, repo.Create(context.Background(), "user-1", record))
}

func TestSessionRepositoryRate(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	record := pomodoro(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 1500)
	require.NoError(t, repo.Create(ctx, "user-1", record))

	require.NoError(t, repo.Rate(ctx, "user-1", record.ID, 4))
	stored, err := repo.GetByID(ctx, "user-1", record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 4, *stored.Rating)

	assert.ErrorIs(t, repo.Rate(ctx, "user-2", record.ID, 4), ErrNotFound)
	assert.ErrorIs(t, repo.Rate(ctx, "user-1", "missing", 4), ErrNotFound)

	_, err = repo.GetByID(ctx, "user-2", record.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepositoryFetchHistory(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, "user-1", pomodoro(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 1500)))
	require.NoError(t, repo.Create(ctx, "user-1", pomodoro(time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), 1200)))
	require.NoError(t, repo.Create(ctx, "user-1", pomodoro(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), 1500)))
	require.NoError(t, repo.Create(ctx, "user-1", &model.SessionRecord{
		Mode:            model.ModeLongBreak,
		StartedAt:       time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC),
		EndedAt:         time.Date(2024, 1, 3, 11, 15, 0, 0, time.UTC),
		DurationSeconds: 900,
	}))
	// Outside a three day window.
	require.NoError(t, repo.Create(ctx, "user-1", pomodoro(time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), 1500)))

	history, err := repo.FetchHistory(ctx, "user-1", 3, now)
	require.NoError(t, err)
	assert.Len(t, history.Sessions, 4)
	assert.Equal(t, []model.DailyAggregate{
		{Day: "2024-01-01", FocusSeconds: 1500, PomodoroCount: 1},
		{Day: "2024-01-03", FocusSeconds: 2700, PomodoroCount: 2},
	}, history.Daily)

	empty, err := repo.FetchHistory(ctx, "user-2", 7, now)
	require.NoError(t, err)
	assert.Empty(t, empty.Sessions)
	assert.Empty(t, empty.Daily)
}

func TestSessionRecorderBindsUser(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	recorder := repo.Recorder("user-9")
	require.NoError(t, recorder.RecordSession(ctx, *pomodoro(time.Now().UTC(), 1500)))

	sessions, err := repo.ListRecent(ctx, "user-9", 5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "user-9", sessions[0].UserID)
}

func TestPreferencesRepository(t *testing.T) {
	repo := NewPreferencesRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	store := repo.DurationStore("user-1")
	_, err = store.LoadDurations(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	custom := model.DurationConfig{Pomodoro: 50, ShortBreak: 10, LongBreak: 30}
	require.NoError(t, store.SaveDurations(ctx, custom))

	loaded, err := store.LoadDurations(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, loaded)

	prefs, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDailyFocusGoalMinutes, prefs.DailyFocusGoalMinutes)

	prefs.DailyFocusGoalMinutes = 90
	prefs.UpdatedAt = time.Time{}
	require.NoError(t, repo.Upsert(ctx, prefs))

	require.NoError(t, store.SaveDurations(ctx, model.DefaultDurations()))
	prefs, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 90, prefs.DailyFocusGoalMinutes)
	assert.Equal(t, model.DefaultDurations(), prefs.Durations)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	user := &model.User{ID: "u1", Email: "a@example.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, user))

	duplicate := *user
	duplicate.ID = "u2"
	assert.ErrorIs(t, repo.Create(ctx, &duplicate), ErrEmailTaken)

	byEmail, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.True(t, byEmail.CreatedAt.Equal(now))

	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
