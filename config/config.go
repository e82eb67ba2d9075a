// Package config загружает настройки приложения из YAML-файла и переменных окружения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port        int  `yaml:"port" validate:"gte=1,lte=65535"`
	OpenBrowser bool `yaml:"open_browser"`
}

type Timetable struct {
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	WeekdayBase int           `yaml:"weekday_base" validate:"oneof=0 1"`
	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	XLSFile     string        `yaml:"xls_file"`
	XLSCharset  string        `yaml:"xls_charset"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Config - настройки приложения
type Config struct {
	Server        Server    `yaml:"server"`
	Timetable     Timetable `yaml:"timetable"`
	SemestersFile string    `yaml:"semesters_file" validate:"required"`
	SemesterStart string    `yaml:"semester_start" validate:"omitempty,datetime=2006-01-02"` // используется, если семестров в файле нет
	Timezone      string    `yaml:"timezone"`
	Log           Log       `yaml:"log"`
}

// Default возвращает настройки по умолчанию
func Default() Config {
	return Config{
		Server: Server{Port: 8060},
		Timetable: Timetable{
			Timeout:     10 * time.Second,
			WeekdayBase: 1,
			CacheTTL:    30 * time.Minute,
		},
		SemestersFile: "semesters.yaml",
		Timezone:      "Europe/Moscow",
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load читает YAML-файл (если он есть), затем .env и переменные окружения.
// Переменные окружения имеют приоритет над файлом.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("не удалось распарсить %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}

	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("не удалось загрузить .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("некорректный PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("TIMETABLE_CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("некорректный TIMETABLE_CACHE_TTL %q: %w", v, err)
		}
		c.Timetable.CacheTTL = ttl
	}

	setString("TIMETABLE_BASE_URL", &c.Timetable.BaseURL)
	setString("TIMETABLE_XLS_FILE", &c.Timetable.XLSFile)
	setString("SEMESTERS_FILE", &c.SemestersFile)
	setString("SEMESTER_START", &c.SemesterStart)
	setString("TIMEZONE", &c.Timezone)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	return nil
}

// Validate проверяет настройки
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("некорректные настройки: %w", err)
	}
	if c.Timetable.BaseURL == "" && c.Timetable.XLSFile == "" {
		return errors.New("некорректные настройки: нужно указать timetable.base_url или timetable.xls_file")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location возвращает часовой пояс расписания
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("неизвестный часовой пояс %q: %w", c.Timezone, err)
	}
	return loc, nil
}
