package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Vaflel/schedule-calendar/domain"
)

// MaxExportDays ограничивает диапазон выгрузки в iCalendar
const MaxExportDays = 366

var (
	ErrNoSemester = errors.New("не задано ни одного семестра")
	ErrBadRange   = errors.New("некорректный диапазон дат")
)

// ServiceConfig - необязательные настройки сервиса
type ServiceConfig struct {
	// Fallback используется, если в реестре нет ни одного семестра
	Fallback *domain.Semester
	Location *time.Location
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// ScheduleService собирает данные календаря: сетку месяца, индикаторы занятий
// и список пар выбранного дня
type ScheduleService struct {
	lessons   LessonsRepository
	semesters SemesterRepository
	exporter  CalendarExporter
	fallback  *domain.Semester
	loc       *time.Location
	log       logrus.FieldLogger
	now       func() time.Time
}

// Query - запрос календаря. Нулевые поля заменяются значениями по умолчанию:
// дата - сегодня, месяц и год - месяц выбранной даты.
type Query struct {
	Kind  domain.ScheduleKind
	Name  string
	Date  time.Time
	Month time.Month
	Year  int
}

// CalendarView содержит всё, что нужно для отображения календаря
type CalendarView struct {
	Kind     domain.ScheduleKind
	Name     string
	Today    time.Time
	Selected time.Time
	Month    time.Month
	Year     int

	PrevMonth time.Month
	PrevYear  int
	NextMonth time.Month
	NextYear  int

	Days         []domain.DayCell
	Events       domain.EventSummary
	Agenda       []domain.Lesson
	WeekDays     []time.Time
	Semester     domain.Semester
	AcademicWeek int

	// NoData - расписание получить не удалось, календарь пустой
	NoData bool
}

// NewScheduleService создает новый экземпляр сервиса
func NewScheduleService(lessons LessonsRepository, semesters SemesterRepository, exporter CalendarExporter, cfg ServiceConfig) *ScheduleService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		lessons:   lessons,
		semesters: semesters,
		exporter:  exporter,
		fallback:  cfg.Fallback,
		loc:       loc,
		log:       log,
		now:       now,
	}
}

// Location возвращает часовой пояс расписания
func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// Today возвращает начало текущего дня в часовом поясе расписания
func (s *ScheduleService) Today() time.Time {
	return domain.StartOfDay(s.now().In(s.loc))
}

// Semester выбирает семестр для даты. Если реестр недоступен или пуст,
// используется семестр из настроек.
func (s *ScheduleService) Semester(date time.Time) (domain.Semester, error) {
	semesters, err := s.semesters.LoadSemesters()
	if err != nil {
		s.log.WithError(err).Warn("не удалось загрузить семестры")
	}
	return s.pickSemester(semesters, date)
}

func (s *ScheduleService) pickSemester(semesters []domain.Semester, date time.Time) (domain.Semester, error) {
	if sem, ok := domain.SemesterFor(semesters, date); ok {
		return sem, nil
	}
	if s.fallback != nil {
		return *s.fallback, nil
	}
	return domain.Semester{}, ErrNoSemester
}

// CalendarView строит календарь на месяц и список занятий выбранного дня.
// Ошибка источника расписания не прерывает построение: возвращается пустой
// календарь с признаком NoData. Некорректное имя возвращается как ошибка.
func (s *ScheduleService) CalendarView(ctx context.Context, q Query) (CalendarView, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return CalendarView{}, fmt.Errorf("пустое имя: %w", domain.ErrBadName)
	}
	if _, err := domain.ParseKind(string(q.Kind)); err != nil {
		return CalendarView{}, err
	}

	today := s.Today()
	selected := today
	if !q.Date.IsZero() {
		selected = domain.StartOfDay(q.Date.In(s.loc))
	}
	month, year := q.Month, q.Year
	if month == 0 {
		month = selected.Month()
	}
	if year == 0 {
		year = selected.Year()
	}
	if month < time.January || month > time.December {
		return CalendarView{}, fmt.Errorf("месяц %d: %w", month, ErrBadRange)
	}

	semesters, err := s.semesters.LoadSemesters()
	if err != nil {
		s.log.WithError(err).Warn("не удалось загрузить семестры")
	}
	semester, err := s.pickSemester(semesters, selected)
	if err != nil {
		return CalendarView{}, err
	}

	view := CalendarView{
		Kind:         q.Kind,
		Name:         name,
		Today:        today,
		Selected:     selected,
		Month:        month,
		Year:         year,
		Days:         domain.SelectDay(domain.MonthGrid(today, month, year), selected),
		Events:       domain.EventSummary{},
		Agenda:       []domain.Lesson{},
		WeekDays:     domain.WeekDays(selected),
		Semester:     semester,
		AcademicWeek: semester.AcademicWeek(selected),
	}
	view.PrevMonth, view.PrevYear = domain.PrevMonth(month, year)
	view.NextMonth, view.NextYear = domain.NextMonth(month, year)

	lessons, err := s.lessons.Lessons(ctx, q.Kind, name)
	if err != nil {
		if errors.Is(err, domain.ErrBadName) {
			return CalendarView{}, err
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"kind": q.Kind,
			"name": name,
		}).Warn("расписание недоступно, показываем пустой календарь")
		view.NoData = true
		return view, nil
	}

	// сетка может захватывать дни соседнего семестра
	for _, date := range domain.GridDates(view.Days) {
		sem, err := s.pickSemester(semesters, date)
		if err != nil {
			continue
		}
		for key, events := range sem.EventsByDate(lessons, []time.Time{date}) {
			view.Events[key] = events
		}
	}

	view.Agenda = s.agenda(q.Kind, semester, lessons, selected)

	return view, nil
}

// Agenda возвращает занятия одного дня
func (s *ScheduleService) Agenda(ctx context.Context, kind domain.ScheduleKind, name string, date time.Time) ([]domain.Lesson, error) {
	lessons, err := s.lessons.Lessons(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	date = domain.StartOfDay(date.In(s.loc))
	semester, err := s.Semester(date)
	if err != nil {
		return nil, err
	}
	return s.agenda(kind, semester, lessons, date), nil
}

func (s *ScheduleService) agenda(kind domain.ScheduleKind, semester domain.Semester, lessons []domain.Lesson, date time.Time) []domain.Lesson {
	day := semester.OccurrencesOn(lessons, date)
	if kind == domain.KindTeacher {
		// потоковые лекции приходят отдельной записью на каждую группу
		day = domain.DedupCrossListed(day)
	}
	return day
}

// Export формирует iCalendar со всеми занятиями в диапазоне дат включительно
func (s *ScheduleService) Export(ctx context.Context, kind domain.ScheduleKind, name string, from, to time.Time) (string, error) {
	from = domain.StartOfDay(from.In(s.loc))
	to = domain.StartOfDay(to.In(s.loc))
	if to.Before(from) {
		return "", fmt.Errorf("%s позже %s: %w", domain.DateKey(from), domain.DateKey(to), ErrBadRange)
	}
	if to.Sub(from) > MaxExportDays*24*time.Hour {
		return "", fmt.Errorf("больше %d дней: %w", MaxExportDays, ErrBadRange)
	}

	name = strings.TrimSpace(name)
	lessons, err := s.lessons.Lessons(ctx, kind, name)
	if err != nil {
		return "", err
	}

	semesters, err := s.semesters.LoadSemesters()
	if err != nil {
		s.log.WithError(err).Warn("не удалось загрузить семестры")
	}

	occurrences := make([]domain.Occurrence, 0)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		semester, err := s.pickSemester(semesters, day)
		if err != nil {
			return "", err
		}
		for _, lesson := range s.agenda(kind, semester, lessons, day) {
			occurrences = append(occurrences, domain.Occurrence{Date: day, Lesson: lesson})
		}
	}

	s.log.WithFields(logrus.Fields{
		"kind":   kind,
		"name":   name,
		"from":   domain.DateKey(from),
		"to":     domain.DateKey(to),
		"events": len(occurrences),
	}).Debug("выгрузка iCalendar")

	return s.exporter.Export(name, occurrences), nil
}
