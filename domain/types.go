package domain

import (
	"fmt"
	"strings"
	"time"
)

// Lesson описывает одно повторяющееся занятие из расписания
type Lesson struct {
	ID         int         `json:"id"`
	Weekday    int         `json:"weekday" validate:"gte=0,lte=6"` // 0 - понедельник
	Weeks      []int       `json:"weeks" validate:"required,min=1,dive,gte=1"`
	Calls      *Call       `json:"calls" validate:"required"`
	Discipline Discipline  `json:"discipline"`
	LessonType *LessonType `json:"lesson_type,omitempty"`
	Teachers   []Teacher   `json:"teachers"`
	Group      Group       `json:"group"`
	Room       *Room       `json:"room,omitempty"`
	Subgroup   int         `json:"subgroup,omitempty"`
}

// Call - время пары
type Call struct {
	Num       int    `json:"num"`
	TimeStart string `json:"time_start"` // "HH:MM:SS" или "HH:MM"
	TimeEnd   string `json:"time_end"`
}

type Discipline struct {
	Name string `json:"name"`
}

type LessonType struct {
	Name string `json:"name"`
}

type Teacher struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	Name string `json:"name"`
}

type Room struct {
	Name   string  `json:"name"`
	Campus *Campus `json:"campus,omitempty"`
}

type Campus struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// TypeName возвращает название типа занятия или пустую строку
func (l Lesson) TypeName() string {
	if l.LessonType == nil {
		return ""
	}
	return l.LessonType.Name
}

// TeacherNames возвращает преподавателей через запятую
func (l Lesson) TeacherNames() string {
	names := make([]string, 0, len(l.Teachers))
	for _, t := range l.Teachers {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// RoomName возвращает аудиторию с кампусом, например "А-101 (В-78)"
func (l Lesson) RoomName() string {
	if l.Room == nil {
		return ""
	}
	if l.Room.Campus != nil && l.Room.Campus.ShortName != "" {
		return fmt.Sprintf("%s (%s)", l.Room.Name, l.Room.Campus.ShortName)
	}
	return l.Room.Name
}

// HasWeek сообщает, проходит ли занятие на указанной учебной неделе
func (l Lesson) HasWeek(week int) bool {
	for _, w := range l.Weeks {
		if w == week {
			return true
		}
	}
	return false
}

// StartTime возвращает время начала в формате "15:04"
func (c Call) StartTime() string {
	return clockPrefix(c.TimeStart)
}

// EndTime возвращает время конца в формате "15:04"
func (c Call) EndTime() string {
	return clockPrefix(c.TimeEnd)
}

// Short возвращает интервал пары, например "09:00 - 10:30"
func (c Call) Short() string {
	return c.StartTime() + " - " + c.EndTime()
}

// Duration возвращает продолжительность пары. Для некорректного времени - 0.
func (c Call) Duration() time.Duration {
	start, err := parseClock(c.TimeStart)
	if err != nil {
		return 0
	}
	end, err := parseClock(c.TimeEnd)
	if err != nil {
		return 0
	}
	if end < start {
		return 0
	}
	return end - start
}

// At возвращает момент начала и конца пары в указанный день
func (c Call) At(date time.Time) (time.Time, time.Time, error) {
	start, err := parseClock(c.TimeStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseClock(c.TimeEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := StartOfDay(date)
	return day.Add(start), day.Add(end), nil
}

func clockPrefix(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

func parseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("некорректное время пары %q", s)
}

// DayCell - клетка месячной сетки календаря
type DayCell struct {
	Date           time.Time `json:"date"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
	IsToday        bool      `json:"isToday"`
	IsSelected     bool      `json:"isSelected"`
}

// Key возвращает ключ клетки в формате "2006-01-02"
func (d DayCell) Key() string {
	return DateKey(d.Date)
}

// Event - индикатор занятия в клетке календаря
type Event struct {
	Name string `json:"name"`
}

// EventSummary сопоставляет дату "2006-01-02" с индикаторами занятий этого дня
type EventSummary map[string][]Event

// DateKey форматирует дату как ключ EventSummary
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfDay отбрасывает время, сохраняя часовой пояс
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay сравнивает только календарную дату
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ScheduleKind - чьё расписание показывается: группы или преподавателя
type ScheduleKind string

const (
	KindGroup   ScheduleKind = "group"
	KindTeacher ScheduleKind = "teacher"
)

// ParseKind разбирает вид расписания из строки
func ParseKind(s string) (ScheduleKind, error) {
	switch ScheduleKind(s) {
	case KindGroup, KindTeacher:
		return ScheduleKind(s), nil
	}
	return "", fmt.Errorf("неизвестный вид расписания %q: %w", s, ErrBadName)
}

// Occurrence - занятие в конкретный день
type Occurrence struct {
	Date   time.Time
	Lesson Lesson
}
