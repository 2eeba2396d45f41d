package model

import (
	"errors"
	"fmt"
)

// Mode identifies one of the three timer phases.
type Mode string

const (
	ModePomodoro   Mode = "pomodoro"
	ModeShortBreak Mode = "shortBreak"
	ModeLongBreak  Mode = "longBreak"
)

// SessionsBeforeLongBreak is the number of completed pomodoros that earns a long break.
const SessionsBeforeLongBreak = 4

const (
	DefaultPomodoroMinutes   = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15

	DefaultDailyFocusGoalMinutes = 120
)

var ErrInvalidDurations = errors.New("durations must be whole minutes >= 1")

func (m Mode) Valid() bool {
	return m == ModePomodoro || m == ModeShortBreak || m == ModeLongBreak
}

func (m Mode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

func ParseMode(raw string) (Mode, error) {
	mode := Mode(raw)
	if !mode.Valid() {
		return "", fmt.Errorf("unknown mode %q", raw)
	}
	return mode, nil
}

// DurationConfig holds the per-mode phase lengths in minutes.
type DurationConfig struct {
	Pomodoro   int `json:"pomodoro" yaml:"pomodoro" toml:"pomodoro"`
	ShortBreak int `json:"shortBreak" yaml:"short_break" toml:"short_break"`
	LongBreak  int `json:"longBreak" yaml:"long_break" toml:"long_break"`
}

func DefaultDurations() DurationConfig {
	return DurationConfig{
		Pomodoro:   DefaultPomodoroMinutes,
		ShortBreak: DefaultShortBreakMinutes,
		LongBreak:  DefaultLongBreakMinutes,
	}
}

func (c DurationConfig) Validate() error {
	if c.Pomodoro < 1 || c.ShortBreak < 1 || c.LongBreak < 1 {
		return ErrInvalidDurations
	}
	return nil
}

// Minutes returns the configured length of mode, or 0 for an unknown mode.
func (c DurationConfig) Minutes(mode Mode) int {
	switch mode {
	case ModePomodoro:
		return c.Pomodoro
	case ModeShortBreak:
		return c.ShortBreak
	case ModeLongBreak:
		return c.LongBreak
	default:
		return 0
	}
}

func (c DurationConfig) Seconds(mode Mode) int {
	return c.Minutes(mode) * 60
}
