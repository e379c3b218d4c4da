package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

const DefaultRuntimeSettingsFile = "/workspace/.project/settings.json"

// RuntimeSettings are the knobs the editor may change while the companion is
// running, persisted across restarts.
type RuntimeSettings struct {
	ScanCron       string `json:"scan_cron"`
	MaxValidations int    `json:"max_validations"`
	TargetLanguage string `json:"target_language"`
	VerseChunkSize int    `json:"verse_chunk_size"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.ScanCron) == "" {
		return fmt.Errorf("scan_cron is required")
	}
	if _, err := cron.ParseStandard(s.ScanCron); err != nil {
		return fmt.Errorf("invalid scan_cron: %w", err)
	}
	if s.MaxValidations < 0 {
		return fmt.Errorf("max_validations must not be negative")
	}
	if s.VerseChunkSize <= 0 {
		return fmt.Errorf("verse_chunk_size must be positive")
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	return nil
}

// RuntimeSettings derives the mutable settings from the loaded config.
func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		ScanCron:       c.Index.CronExpr,
		MaxValidations: c.Validation.MaxLevel,
		TargetLanguage: c.System.TargetLanguage.String(),
		VerseChunkSize: c.Index.VerseChunkSize,
	}
}

// WithRuntimeSettings overlays persisted runtime settings onto the config.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.ScanCron) != "" {
			c.Index.CronExpr = settings.ScanCron
		}
		if settings.MaxValidations > 0 {
			c.Validation.MaxLevel = settings.MaxValidations
		}
		if settings.VerseChunkSize > 0 {
			c.Index.VerseChunkSize = settings.VerseChunkSize
		}
		if tag, err := language.Parse(settings.TargetLanguage); err == nil {
			c.System.TargetLanguage = tag
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
