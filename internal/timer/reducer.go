package timer

import (
	"strings"
	"time"

	"flowtimer/internal/model"
)

type ActionType string

const (
	ActionStart           ActionType = "start"
	ActionPause           ActionType = "pause"
	ActionReset           ActionType = "reset"
	ActionSwitchMode      ActionType = "switch_mode"
	ActionUpdateDurations ActionType = "update_durations"
	ActionReconcile       ActionType = "reconcile"
	ActionSetIntention    ActionType = "set_intention"
)

// Action is a discriminated request for Apply. Now is the wall-clock reading
// the action was issued at; the reducer never reads the clock itself.
type Action struct {
	Type      ActionType
	Now       time.Time
	Mode      model.Mode
	Durations model.DurationConfig
	Intention string
}

func Start(now time.Time) Action {
	return Action{Type: ActionStart, Now: now}
}

func Pause(now time.Time) Action {
	return Action{Type: ActionPause, Now: now}
}

func Reset() Action {
	return Action{Type: ActionReset}
}

func SwitchMode(mode model.Mode) Action {
	return Action{Type: ActionSwitchMode, Mode: mode}
}

func UpdateDurations(durations model.DurationConfig, now time.Time) Action {
	return Action{Type: ActionUpdateDurations, Durations: durations, Now: now}
}

func Reconcile(now time.Time) Action {
	return Action{Type: ActionReconcile, Now: now}
}

func SetIntention(intention string) Action {
	return Action{Type: ActionSetIntention, Intention: intention}
}

type EffectType string

const (
	EffectPhaseStarted     EffectType = "phase_started"
	EffectPhaseEnded       EffectType = "phase_ended"
	EffectSessionCompleted EffectType = "session_completed"
	EffectDurationsChanged EffectType = "durations_changed"
)

// Effect is a side effect requested by Apply and carried out by the caller.
type Effect struct {
	Type      EffectType            `json:"type"`
	Mode      model.Mode            `json:"mode,omitempty"`
	Session   *model.SessionRecord  `json:"session,omitempty"`
	Durations *model.DurationConfig `json:"durations,omitempty"`
}

// Apply returns the state that results from action together with the side
// effects the caller must perform. Transitions that are not valid from the
// current state return it unchanged with no effects.
func Apply(state State, action Action) (State, []Effect) {
	switch action.Type {
	case ActionStart:
		return start(state, action.Now)
	case ActionPause:
		return pause(state)
	case ActionReset:
		return reset(state), nil
	case ActionSwitchMode:
		return switchMode(state, action.Mode), nil
	case ActionUpdateDurations:
		return updateDurations(state, action.Durations, action.Now)
	case ActionReconcile:
		return reconcile(state, action.Now)
	case ActionSetIntention:
		state.Intention = strings.TrimSpace(action.Intention)
		return state, nil
	default:
		return state, nil
	}
}

func start(state State, now time.Time) (State, []Effect) {
	if state.Running {
		return state, nil
	}
	if state.RemainingSeconds <= 0 {
		state.RemainingSeconds = state.TotalSeconds()
	}
	state.Running = true
	state.TargetEpoch = targetFrom(now, state.RemainingSeconds)
	return state, []Effect{{Type: EffectPhaseStarted, Mode: state.Mode}}
}

func pause(state State) (State, []Effect) {
	if !state.Running {
		return state, nil
	}
	state.Running = false
	state.TargetEpoch = nil
	return state, nil
}

func reset(state State) State {
	state.Running = false
	state.TargetEpoch = nil
	state.RemainingSeconds = state.TotalSeconds()
	return state
}

func switchMode(state State, mode model.Mode) State {
	if !mode.Valid() {
		return state
	}
	state.Mode = mode
	return reset(state)
}

// updateDurations recomputes the remaining time only when the active mode's
// length changed. A running phase is re-targeted from now so the next
// reconcile keeps the new length.
func updateDurations(state State, durations model.DurationConfig, now time.Time) (State, []Effect) {
	if durations.Validate() != nil || durations == state.Durations {
		return state, nil
	}
	previousTotal := state.TotalSeconds()
	state.Durations = durations
	if total := state.TotalSeconds(); total != previousTotal {
		state.RemainingSeconds = total
		if state.Running {
			state.TargetEpoch = targetFrom(now, total)
		}
	}
	return state, []Effect{{Type: EffectDurationsChanged, Durations: &durations}}
}

func reconcile(state State, now time.Time) (State, []Effect) {
	if !state.Running || state.TargetEpoch == nil {
		return state, nil
	}

	remainingMs := *state.TargetEpoch - now.UnixMilli()
	if remainingMs <= 0 {
		return complete(state, now)
	}

	remaining := int((remainingMs + 999) / 1000)
	if total := state.TotalSeconds(); remaining > total {
		// clock moved backwards past the phase start
		remaining = total
	}
	if remaining == state.RemainingSeconds {
		return state, nil
	}
	state.RemainingSeconds = remaining
	return state, nil
}

func complete(state State, now time.Time) (State, []Effect) {
	total := state.TotalSeconds()
	startedAt := time.UnixMilli(*state.TargetEpoch).Add(-time.Duration(total) * time.Second)

	record := model.SessionRecord{
		Mode:            state.Mode,
		StartedAt:       startedAt.In(now.Location()),
		EndedAt:         now,
		DurationSeconds: total,
	}
	if state.Mode == model.ModePomodoro && state.Intention != "" {
		intention := state.Intention
		record.Intention = &intention
	}
	effects := []Effect{
		{Type: EffectSessionCompleted, Mode: state.Mode, Session: &record},
		{Type: EffectPhaseEnded, Mode: state.Mode},
	}

	next := model.ModePomodoro
	if state.Mode == model.ModePomodoro {
		state.PomodoroCount++
		if state.PomodoroCount >= model.SessionsBeforeLongBreak {
			next = model.ModeLongBreak
			state.PomodoroCount = 0
		} else {
			next = model.ModeShortBreak
		}
	}

	state.Mode = next
	return reset(state), effects
}

func targetFrom(now time.Time, remainingSeconds int) *int64 {
	target := now.UnixMilli() + int64(remainingSeconds)*1000
	return &target
}
