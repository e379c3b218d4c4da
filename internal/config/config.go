package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// HTTP Configuration:
// - HTTP_ADDR: Listen address for the companion API (default: 127.0.0.1:5554)
//
// Workspace Configuration:
// - WORKSPACE_DIR: Root of the .codex project workspace (default: /workspace)
// - DB_PATH: SQLite database path (default: <workspace>/.project/companion.db)
// - DICTIONARY_PATH: Project dictionary file (default: <workspace>/project.dictionary)
//
// Index Configuration:
// - SCAN_CRON: Cron expression for workspace scans (default: @every 10m)
// - INDEX_WORKERS: Indexing worker goroutines (default: 2)
// - VERSE_CHUNK_SIZE: Verses per search chunk (default: 4)
//
// Validation Configuration:
// - MAX_VALIDATIONS: Maximum required validations per cell (default: 3)
//
// System Configuration:
// - TARGET_LANGUAGE: BCP 47 tag of the draft language (default: en)
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig `json:"http"`

	// Workspace Configuration
	Workspace WorkspaceConfig `json:"workspace"`

	// Index Configuration
	Index IndexConfig `json:"index"`

	// Validation Configuration
	Validation ValidationConfig `json:"validation"`

	// System Configuration
	System SystemConfig `json:"system"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

// WorkspaceConfig locates the project files the companion operates on.
type WorkspaceConfig struct {
	Dir            string `json:"dir"`
	DBPath         string `json:"db_path"`
	DictionaryPath string `json:"dictionary_path"`
}

type IndexConfig struct {
	CronExpr       string `json:"cron_expr"`
	Workers        int    `json:"workers"`
	VerseChunkSize int    `json:"verse_chunk_size"`
}

// ValidationConfig sets the reporting depth for validation levels.
type ValidationConfig struct {
	MaxLevel int `json:"max_level"`
}

type SystemConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
	LogLevel       string       `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithWorkspaceDir overrides the workspace root and its derived paths.
func WithWorkspaceDir(dir string) Option {
	return func(c *Config) {
		c.Workspace.Dir = dir
		c.Workspace.DBPath = filepath.Join(dir, ".project", "companion.db")
		c.Workspace.DictionaryPath = filepath.Join(dir, "project.dictionary")
	}
}

// WithScanCron overrides the workspace scan schedule.
func WithScanCron(expr string) Option {
	return func(c *Config) {
		c.Index.CronExpr = expr
	}
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	workspaceDir := getEnvString("WORKSPACE_DIR", "/workspace")

	config := &Config{
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", "127.0.0.1:5554"),
		},
		Workspace: WorkspaceConfig{
			Dir:            workspaceDir,
			DBPath:         getEnvString("DB_PATH", filepath.Join(workspaceDir, ".project", "companion.db")),
			DictionaryPath: getEnvString("DICTIONARY_PATH", filepath.Join(workspaceDir, "project.dictionary")),
		},
		Index: IndexConfig{
			CronExpr:       getEnvString("SCAN_CRON", "@every 10m"),
			Workers:        getEnvInt("INDEX_WORKERS", 2),
			VerseChunkSize: getEnvInt("VERSE_CHUNK_SIZE", 4),
		},
		Validation: ValidationConfig{
			MaxLevel: getEnvInt("MAX_VALIDATIONS", 3),
		},
		System: SystemConfig{
			TargetLanguage: parseLanguage(getEnvString("TARGET_LANGUAGE", "en")),
			LogLevel:       getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Workspace.Dir == "" {
		return fmt.Errorf("WORKSPACE_DIR is required")
	}
	if c.Validation.MaxLevel < 0 {
		return fmt.Errorf("MAX_VALIDATIONS must not be negative")
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("INDEX_WORKERS must be positive")
	}
	return nil
}

func parseLanguage(tag string) language.Tag {
	parsed, err := language.Parse(tag)
	if err != nil {
		return language.English
	}
	return parsed
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
