package prefs

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowtimer/internal/model"
	"flowtimer/internal/timer"
)

func TestFileStoreMissingFileReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing", "durations.yaml"))

	durations, err := store.LoadDurations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDurations(), durations)
	assert.Equal(t, model.DefaultDailyFocusGoalMinutes, store.DailyGoal())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "durations.yaml")
	store := NewFileStore(path)
	custom := model.DurationConfig{Pomodoro: 45, ShortBreak: 10, LongBreak: 20}

	require.NoError(t, store.SaveDurations(context.Background(), custom))
	require.NoError(t, store.SaveDailyGoal(90))

	loaded, err := NewFileStore(path).LoadDurations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, custom, loaded)
	assert.Equal(t, 90, store.DailyGoal())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "short_break: 10")
}

func TestFileStoreRejectsInvalidSave(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "durations.yaml"))
	err := store.SaveDurations(context.Background(), model.DurationConfig{Pomodoro: 0, ShortBreak: 5, LongBreak: 15})
	assert.ErrorIs(t, err, model.ErrInvalidDurations)
	assert.Error(t, store.SaveDailyGoal(0))
}

func TestFileStoreMalformedContentFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Not yaml", "durations: [unterminated"},
		{"Zero pomodoro", "durations:\n  pomodoro: 0\n  short_break: 5\n  long_break: 15\n"},
		{"Negative break", "durations:\n  pomodoro: 25\n  short_break: -5\n  long_break: 15\n"},
		{"Wrong type", "durations:\n  pomodoro: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "durations.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			durations := timer.LoadDurations(context.Background(), NewFileStore(path), log.New(io.Discard, "", 0))
			assert.Equal(t, model.DefaultDurations(), durations)
		})
	}
}
