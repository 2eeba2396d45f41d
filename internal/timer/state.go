package timer

import "flowtimer/internal/model"

// Phase is the coarse display tag derived from mode and running flag.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// State is the timer value the reducer operates on. TargetEpoch is the
// wall-clock instant, in Unix milliseconds, at which the running phase reaches
// zero; it is nil whenever Running is false.
type State struct {
	Mode             model.Mode
	Durations        model.DurationConfig
	RemainingSeconds int
	Running          bool
	TargetEpoch      *int64
	PomodoroCount    int
	Intention        string
}

// NewState returns an idle pomodoro with a full remaining time. Invalid
// durations fall back to the defaults.
func NewState(durations model.DurationConfig) State {
	if durations.Validate() != nil {
		durations = model.DefaultDurations()
	}
	return State{
		Mode:             model.ModePomodoro,
		Durations:        durations,
		RemainingSeconds: durations.Seconds(model.ModePomodoro),
	}
}

func (s State) TotalSeconds() int {
	return s.Durations.Seconds(s.Mode)
}

func (s State) Progress() float64 {
	total := s.TotalSeconds()
	if total <= 0 {
		return 0
	}
	progress := 1 - float64(s.RemainingSeconds)/float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (s State) Phase() Phase {
	if !s.Running {
		return PhaseIdle
	}
	if s.Mode == model.ModePomodoro {
		return PhaseWork
	}
	return PhaseBreak
}

// Equal compares by value, following TargetEpoch through its pointer.
func (s State) Equal(other State) bool {
	if (s.TargetEpoch == nil) != (other.TargetEpoch == nil) {
		return false
	}
	if s.TargetEpoch != nil && *s.TargetEpoch != *other.TargetEpoch {
		return false
	}
	a, b := s, other
	a.TargetEpoch, b.TargetEpoch = nil, nil
	return a == b
}
