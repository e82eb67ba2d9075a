package usecases

import (
	"context"

	"github.com/Vaflel/schedule-calendar/domain"
)

// LessonsRepository отдаёт занятия группы или преподавателя
type LessonsRepository interface {
	Lessons(ctx context.Context, kind domain.ScheduleKind, name string) ([]domain.Lesson, error)
}

// SemesterRepository определяет интерфейс для работы с хранилищем семестров
type SemesterRepository interface {
	LoadSemesters() ([]domain.Semester, error)
	AddSemester(semester domain.Semester) error
	GetSemester(name string) (domain.Semester, error)
	UpdateSemester(name string, updated domain.Semester) error
	DeleteSemester(name string) error
}

// CalendarExporter сериализует занятия в календарь для внешних приложений
type CalendarExporter interface {
	Export(title string, occurrences []domain.Occurrence) string
}
