package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		ScanCron:       "*/10 * * * *",
		MaxValidations: 3,
		TargetLanguage: "en",
		VerseChunkSize: 4,
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	tests := []struct {
		name   string
		mutate func(*RuntimeSettings)
	}{
		{"empty cron", func(s *RuntimeSettings) { s.ScanCron = "" }},
		{"invalid cron", func(s *RuntimeSettings) { s.ScanCron = "not a cron" }},
		{"negative max validations", func(s *RuntimeSettings) { s.MaxValidations = -1 }},
		{"zero chunk size", func(s *RuntimeSettings) { s.VerseChunkSize = 0 }},
		{"empty language", func(s *RuntimeSettings) { s.TargetLanguage = "" }},
		{"invalid language", func(s *RuntimeSettings) { s.TargetLanguage = "zz-bogus-!!" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(&settings)
			assert.Error(t, settings.Validate())
		})
	}
}

func TestRuntimeSettings_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	settings := validSettings()

	require.NoError(t, WriteRuntimeSettingsFile(path, settings))

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	// no stray temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRuntimeSettingsStore_UpdatePersistsAndApplies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewRuntimeSettingsStore(path, validSettings())
	require.NoError(t, err)

	next := validSettings()
	next.MaxValidations = 5
	saved, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.MaxValidations)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, 5, current.MaxValidations)

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.MaxValidations)
}

func TestRuntimeSettingsStore_RejectsInvalidUpdate(t *testing.T) {
	store, err := NewRuntimeSettingsStore(filepath.Join(t.TempDir(), "settings.json"), validSettings())
	require.NoError(t, err)

	bad := validSettings()
	bad.ScanCron = "nope"
	_, err = store.UpdateRuntimeSettings(bad)
	assert.Error(t, err)
}

func TestWithRuntimeSettings_OverlaysConfig(t *testing.T) {
	settings := RuntimeSettings{
		ScanCron:       "0 * * * *",
		MaxValidations: 9,
		TargetLanguage: "de",
		VerseChunkSize: 8,
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(settings))
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", cfg.Index.CronExpr)
	assert.Equal(t, 9, cfg.Validation.MaxLevel)
	assert.Equal(t, 8, cfg.Index.VerseChunkSize)
	assert.Equal(t, language.German, cfg.System.TargetLanguage)
}
