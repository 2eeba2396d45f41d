// Package prefs keeps the local CLI's duration settings in a YAML file.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"flowtimer/internal/model"
)

const fileName = "durations.yaml"

type yamlDurations struct {
	Durations model.DurationConfig `yaml:"durations"`
	// DailyFocusGoalMinutes is read by the stats command.
	DailyFocusGoalMinutes int `yaml:"daily_focus_goal_minutes,omitempty"`
}

// FileStore implements timer.DurationStore on top of a YAML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath resolves the per-user config location for appName.
func DefaultPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, fileName), nil
}

func (s *FileStore) Path() string {
	return s.path
}

// LoadDurations returns the defaults when the file does not exist yet.
func (s *FileStore) LoadDurations(ctx context.Context) (model.DurationConfig, error) {
	data, err := s.read()
	if err != nil {
		return model.DefaultDurations(), err
	}
	if data.Durations == (model.DurationConfig{}) {
		return model.DefaultDurations(), nil
	}
	if err := data.Durations.Validate(); err != nil {
		return model.DefaultDurations(), fmt.Errorf("durations in %s: %w", s.path, err)
	}
	return data.Durations, nil
}

func (s *FileStore) SaveDurations(ctx context.Context, durations model.DurationConfig) error {
	if err := durations.Validate(); err != nil {
		return err
	}
	data, err := s.read()
	if err != nil {
		data = yamlDurations{}
	}
	data.Durations = durations
	return s.write(data)
}

// DailyGoal returns the configured daily focus goal in minutes.
func (s *FileStore) DailyGoal() int {
	data, err := s.read()
	if err != nil || data.DailyFocusGoalMinutes < 1 {
		return model.DefaultDailyFocusGoalMinutes
	}
	return data.DailyFocusGoalMinutes
}

func (s *FileStore) SaveDailyGoal(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("daily goal must be at least 1 minute")
	}
	data, err := s.read()
	if err != nil {
		data = yamlDurations{Durations: model.DefaultDurations()}
	}
	if data.Durations == (model.DurationConfig{}) {
		data.Durations = model.DefaultDurations()
	}
	data.DailyFocusGoalMinutes = minutes
	return s.write(data)
}

func (s *FileStore) read() (yamlDurations, error) {
	var data yamlDurations
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return data, fmt.Errorf("read durations file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return yamlDurations{}, fmt.Errorf("parse durations yaml: %w", err)
	}
	return data, nil
}

func (s *FileStore) write(data yamlDurations) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	serialized, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal durations yaml: %w", err)
	}
	if err := os.WriteFile(s.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write durations file: %w", err)
	}
	return nil
}
