package timer

import (
	"context"
	"log"

	"flowtimer/internal/model"
)

// AudioNotifier receives fire-and-forget phase notifications.
type AudioNotifier interface {
	PhaseStarted(mode model.Mode)
	PhaseEnded(mode model.Mode)
}

// SessionRecorder persists completed phases. Errors are logged by the
// machine and never affect timer state.
type SessionRecorder interface {
	RecordSession(ctx context.Context, record model.SessionRecord) error
}

// DurationStore loads and saves the duration config on a best-effort basis.
type DurationStore interface {
	LoadDurations(ctx context.Context) (model.DurationConfig, error)
	SaveDurations(ctx context.Context, durations model.DurationConfig) error
}

// LoadDurations reads durations from store, falling back to the defaults
// when the store is missing, fails, or holds an invalid config.
func LoadDurations(ctx context.Context, store DurationStore, logger *log.Logger) model.DurationConfig {
	if store == nil {
		return model.DefaultDurations()
	}
	if logger == nil {
		logger = log.Default()
	}
	durations, err := store.LoadDurations(ctx)
	if err != nil {
		logger.Printf("load durations: %v; using defaults", err)
		return model.DefaultDurations()
	}
	if err := durations.Validate(); err != nil {
		logger.Printf("stored durations %+v rejected: %v; using defaults", durations, err)
		return model.DefaultDurations()
	}
	return durations
}

// LogNotifier writes phase notifications to a logger. It stands in for audio
// on hosts without a speaker, such as the API server.
type LogNotifier struct {
	Logger *log.Logger
	Prefix string
}

func (n LogNotifier) PhaseStarted(mode model.Mode) {
	n.logger().Printf("%sphase started: %s", n.Prefix, mode)
}

func (n LogNotifier) PhaseEnded(mode model.Mode) {
	n.logger().Printf("%sphase ended: %s", n.Prefix, mode)
}

func (n LogNotifier) logger() *log.Logger {
	if n.Logger == nil {
		return log.Default()
	}
	return n.Logger
}
