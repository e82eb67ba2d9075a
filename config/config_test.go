package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
timetable:
  base_url: https://timetable.example.org
  timeout: 5s
  cache_ttl: 1h
semesters_file: data/semesters.yaml
semester_start: "2024-02-09"
timezone: UTC
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://timetable.example.org", cfg.Timetable.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timetable.Timeout)
	assert.Equal(t, time.Hour, cfg.Timetable.CacheTTL)
	assert.Equal(t, 1, cfg.Timetable.WeekdayBase)
	assert.Equal(t, "data/semesters.yaml", cfg.SemestersFile)
	assert.Equal(t, "2024-02-09", cfg.SemesterStart)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
timetable:
  base_url: https://timetable.example.org
`)
	t.Setenv("PORT", "8081")
	t.Setenv("SEMESTER_START", "2023-09-01")
	t.Setenv("TIMETABLE_BASE_URL", "https://other.example.org")
	t.Setenv("TIMETABLE_CACHE_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "2023-09-01", cfg.SemesterStart)
	assert.Equal(t, "https://other.example.org", cfg.Timetable.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Timetable.CacheTTL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TIMETABLE_XLS_FILE", "schedule.xls")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8060, cfg.Server.Port)
	assert.Equal(t, "schedule.xls", cfg.Timetable.XLSFile)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Timetable.BaseURL = "https://timetable.example.org"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "no source", modify: func(c *Config) { c.Timetable.BaseURL = "" }},
		{name: "bad url", modify: func(c *Config) { c.Timetable.BaseURL = "::" }},
		{name: "bad port", modify: func(c *Config) { c.Server.Port = 0 }},
		{name: "bad weekday base", modify: func(c *Config) { c.Timetable.WeekdayBase = 2 }},
		{name: "bad semester start", modify: func(c *Config) { c.SemesterStart = "09.02.2024" }},
		{name: "bad level", modify: func(c *Config) { c.Log.Level = "loud" }},
		{name: "bad timezone", modify: func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(Log{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = NewLogger(Log{Level: "loud"})
	assert.Error(t, err)
}
