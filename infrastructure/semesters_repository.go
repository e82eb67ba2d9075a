package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Vaflel/schedule-calendar/domain"
)

// semesterRecord - запись семестра в YAML
type semesterRecord struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"` // "2006-01-02"
}

// SemestersConfig структура для загрузки из YAML
type SemestersConfig struct {
	Semesters []semesterRecord `yaml:"semesters"`
}

// YAMLSemesterRepository хранит список семестров в YAML-файле
type YAMLSemesterRepository struct {
	filename string
	loc      *time.Location
	mutex    sync.RWMutex
}

// NewYAMLSemesterRepository создает новый экземпляр репозитория
func NewYAMLSemesterRepository(filename string, loc *time.Location) *YAMLSemesterRepository {
	if loc == nil {
		loc = time.Local
	}
	return &YAMLSemesterRepository{
		filename: filename,
		loc:      loc,
	}
}

// LoadSemesters загружает семестры, упорядоченные по дате начала.
// Отсутствующий файл означает пустой список.
func (r *YAMLSemesterRepository) LoadSemesters() ([]domain.Semester, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loadSemestersUnsafe()
}

// AddSemester добавляет семестр
func (r *YAMLSemesterRepository) AddSemester(semester domain.Semester) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	semesters, err := r.loadSemestersUnsafe()
	if err != nil {
		return err
	}

	for _, s := range semesters {
		if s.Name == semester.Name {
			return fmt.Errorf("семестр %s уже существует", semester.Name)
		}
	}

	semesters = append(semesters, semester)
	return r.saveSemestersUnsafe(semesters)
}

// GetSemester возвращает семестр по названию
func (r *YAMLSemesterRepository) GetSemester(name string) (domain.Semester, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	semesters, err := r.loadSemestersUnsafe()
	if err != nil {
		return domain.Semester{}, err
	}

	for _, s := range semesters {
		if s.Name == name {
			return s, nil
		}
	}

	return domain.Semester{}, fmt.Errorf("семестр %s: %w", name, domain.ErrNotFound)
}

// UpdateSemester заменяет семестр с указанным названием
func (r *YAMLSemesterRepository) UpdateSemester(name string, updated domain.Semester) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	semesters, err := r.loadSemestersUnsafe()
	if err != nil {
		return err
	}

	index := -1
	for i, s := range semesters {
		if s.Name == name {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("семестр %s: %w", name, domain.ErrNotFound)
	}

	// переименование не должно создавать второй семестр с тем же названием
	for i, s := range semesters {
		if i != index && s.Name == updated.Name {
			return fmt.Errorf("семестр %s уже существует", updated.Name)
		}
	}

	semesters[index] = updated
	return r.saveSemestersUnsafe(semesters)
}

// DeleteSemester удаляет семестр по названию
func (r *YAMLSemesterRepository) DeleteSemester(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	semesters, err := r.loadSemestersUnsafe()
	if err != nil {
		return err
	}

	for i, s := range semesters {
		if s.Name == name {
			semesters = append(semesters[:i], semesters[i+1:]...)
			return r.saveSemestersUnsafe(semesters)
		}
	}

	return fmt.Errorf("семестр %s: %w", name, domain.ErrNotFound)
}

// loadSemestersUnsafe загружает семестры без блокировки (внутренний метод)
func (r *YAMLSemesterRepository) loadSemestersUnsafe() ([]domain.Semester, error) {
	data, err := os.ReadFile(r.filename)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Semester{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	var config SemestersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("не удалось распарсить YAML: %w", err)
	}

	semesters := make([]domain.Semester, 0, len(config.Semesters))
	for _, rec := range config.Semesters {
		s, err := domain.ParseSemester(rec.Name, rec.Start, r.loc)
		if err != nil {
			return nil, err
		}
		semesters = append(semesters, s)
	}

	sort.SliceStable(semesters, func(i, j int) bool {
		return semesters[i].Start.Before(semesters[j].Start)
	})

	return semesters, nil
}

// saveSemestersUnsafe сохраняет семестры в YAML файл без блокировки (внутренний метод)
func (r *YAMLSemesterRepository) saveSemestersUnsafe(semesters []domain.Semester) error {
	config := SemestersConfig{Semesters: make([]semesterRecord, 0, len(semesters))}
	for _, s := range semesters {
		config.Semesters = append(config.Semesters, semesterRecord{
			Name:  s.Name,
			Start: domain.DateKey(s.Start),
		})
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать YAML: %w", err)
	}

	if err := os.WriteFile(r.filename, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать файл: %w", err)
	}

	return nil
}
