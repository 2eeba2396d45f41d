package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	apperrors "flowtimer/internal/errors"
	"flowtimer/internal/model"
	"flowtimer/internal/repository"
	"flowtimer/internal/timer"
)

const maxIntentionLength = 200

// TimerDeps wires the collaborators every per-user machine shares.
type TimerDeps struct {
	Sessions    *repository.SessionRepository
	Preferences *repository.PreferencesRepository
	Audio       timer.AudioNotifier
	Logger      *log.Logger
	Clock       func() time.Time
	Options     timer.Options
}

// TimerService hosts one timer.Machine per user. Machines are created lazily
// with the user's stored durations and live until Close.
type TimerService struct {
	deps TimerDeps
	// durations opens a user's stored durations; nil keeps the defaults.
	durations func(userID string) timer.DurationStore

	mu       sync.Mutex
	machines map[string]*timer.Machine
	closed   bool
}

func NewTimerService(deps TimerDeps) *TimerService {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	s := &TimerService{
		deps:     deps,
		machines: make(map[string]*timer.Machine),
	}
	if deps.Preferences != nil {
		s.durations = func(userID string) timer.DurationStore {
			return deps.Preferences.DurationStore(userID)
		}
	}
	return s
}

// GetState reconciles the user's timer against the clock and returns it.
func (s *TimerService) GetState(ctx context.Context, userID string) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.Reconcile(time.Time{}), 0)
}

func (s *TimerService) Start(ctx context.Context, userID string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.Start(time.Time{}), baseVersion)
}

func (s *TimerService) Pause(ctx context.Context, userID string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.Pause(time.Time{}), baseVersion)
}

func (s *TimerService) Reset(ctx context.Context, userID string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.Reset(), baseVersion)
}

// Wake is sent by clients that regain focus after being suspended.
func (s *TimerService) Wake(ctx context.Context, userID string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.Reconcile(time.Time{}), baseVersion)
}

func (s *TimerService) SwitchMode(ctx context.Context, userID, mode string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	parsed, err := model.ParseMode(mode)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_mode", timer.ErrInvalidMode.Error())
	}
	return s.do(ctx, userID, timer.SwitchMode(parsed), baseVersion)
}

func (s *TimerService) UpdateDurations(ctx context.Context, userID string, durations model.DurationConfig, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	return s.do(ctx, userID, timer.UpdateDurations(durations, time.Time{}), baseVersion)
}

func (s *TimerService) SetIntention(ctx context.Context, userID, intention string, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	if utf8.RuneCountInString(strings.TrimSpace(intention)) > maxIntentionLength {
		return nil, apperrors.BadRequest("invalid_intention", "intention must be at most 200 characters")
	}
	return s.do(ctx, userID, timer.SetIntention(intention), baseVersion)
}

// Subscribe streams the user's timer events until cancel is called.
func (s *TimerService) Subscribe(ctx context.Context, userID string) (<-chan timer.Event, func(), *apperrors.APIError) {
	machine, apiErr := s.machine(ctx, userID)
	if apiErr != nil {
		return nil, nil, apiErr
	}
	events := machine.Subscribe(8)
	return events, func() { machine.Unsubscribe(events) }, nil
}

// Flush waits for pending session writes of every machine.
func (s *TimerService) Flush() {
	for _, machine := range s.snapshotMachines() {
		machine.Flush()
	}
}

// Close stops every machine and rejects further requests.
func (s *TimerService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, machine := range s.snapshotMachines() {
		machine.Close()
	}
}

func (s *TimerService) snapshotMachines() []*timer.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	machines := make([]*timer.Machine, 0, len(s.machines))
	for _, machine := range s.machines {
		machines = append(machines, machine)
	}
	return machines
}

func (s *TimerService) do(ctx context.Context, userID string, action timer.Action, baseVersion int) (*timer.Snapshot, *apperrors.APIError) {
	machine, apiErr := s.machine(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	snapshot, err := machine.Do(action, baseVersion)
	if err != nil {
		return nil, timerError(err)
	}
	return &snapshot, nil
}

// machine returns the user's machine, creating it on first use. The stored
// durations are read without holding s.mu so a slow read for one user does
// not stall requests for the others.
func (s *TimerService) machine(ctx context.Context, userID string) (*timer.Machine, *apperrors.APIError) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.Unavailable("timer service is shutting down")
	}
	if machine, ok := s.machines[userID]; ok {
		s.mu.Unlock()
		return machine, nil
	}
	s.mu.Unlock()

	deps := timer.Deps{
		Audio:  s.deps.Audio,
		Logger: s.deps.Logger,
		Clock:  s.deps.Clock,
	}
	if s.deps.Sessions != nil {
		deps.Recorder = s.deps.Sessions.Recorder(userID)
	}
	if s.durations != nil {
		deps.Durations = s.durations(userID)
	}
	durations := timer.LoadDurations(ctx, deps.Durations, s.deps.Logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.Unavailable("timer service is shutting down")
	}
	// A concurrent first request may have won the race.
	if machine, ok := s.machines[userID]; ok {
		return machine, nil
	}
	machine := timer.NewMachine(timer.NewState(durations), deps, s.deps.Options)
	s.machines[userID] = machine
	return machine, nil
}

func timerError(err error) *apperrors.APIError {
	var conflict *timer.ConflictError
	switch {
	case errors.As(err, &conflict):
		return apperrors.Conflict("state_conflict", "state changed on another device", map[string]interface{}{
			"state": conflict.Current,
		})
	case errors.Is(err, timer.ErrInvalidMode):
		return apperrors.BadRequest("invalid_mode", err.Error())
	case errors.Is(err, model.ErrInvalidDurations):
		return apperrors.BadRequest("invalid_durations", err.Error())
	case errors.Is(err, timer.ErrClosed):
		return apperrors.Unavailable("timer service is shutting down")
	default:
		return apperrors.Wrap(err, "failed to update timer")
	}
}
