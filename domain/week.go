package domain

import (
	"fmt"
	"sort"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Semester задаёт начало семестра, от которого считаются учебные недели
type Semester struct {
	Name  string
	Start time.Time
}

// NewSemester создаёт семестр, начало приводится к полуночи
func NewSemester(name string, start time.Time) Semester {
	return Semester{Name: name, Start: StartOfDay(start)}
}

// ParseSemester разбирает дату начала в формате "2006-01-02"
func ParseSemester(name, start string, loc *time.Location) (Semester, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", start, loc)
	if err != nil {
		return Semester{}, fmt.Errorf("некорректная дата начала семестра %q: %w", start, err)
	}
	return NewSemester(name, t), nil
}

// ISOWeek возвращает номер недели по ISO 8601 (понедельник - первый день,
// первая неделя содержит первый четверг года). Дата берётся без учёта
// часового пояса: значение имеют только год, месяц и день.
func ISOWeek(date time.Time) int {
	_, week := utcDate(date).ISOWeek()
	return week
}

// AcademicWeek возвращает номер учебной недели (с 1) для даты.
// Неделя, в которую попадает начало семестра, первая. Для дат до начала
// семестра возвращается 1. Внутри одного ISO-года результат совпадает с
// разностью ISO-номеров недель, на стыке лет счёт продолжается.
func (s Semester) AcademicWeek(date time.Time) int {
	d := utcDate(date)
	start := utcDate(s.Start)
	if d.Before(start) {
		return 1
	}

	days := (isoMonday(d).Unix() - isoMonday(start).Unix()) / secondsPerDay
	return int(days/7) + 1
}

// NormalizedWeekday возвращает день недели, где 0 - понедельник, 6 - воскресенье
func NormalizedWeekday(date time.Time) int {
	wd := date.Weekday()
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// WeekDays возвращает дни недели (с понедельника по воскресенье), в которую попадает дата
func WeekDays(date time.Time) []time.Time {
	monday := StartOfDay(date).AddDate(0, 0, -NormalizedWeekday(date))
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// DaysInMonth возвращает количество дней в месяце
func DaysInMonth(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PrevMonth возвращает предыдущий месяц с переходом через год
func PrevMonth(month time.Month, year int) (time.Month, int) {
	if month == time.January {
		return time.December, year - 1
	}
	return month - 1, year
}

// NextMonth возвращает следующий месяц с переходом через год
func NextMonth(month time.Month, year int) (time.Month, int) {
	if month == time.December {
		return time.January, year + 1
	}
	return month + 1, year
}

// SemesterFor выбирает последний семестр, начавшийся не позже даты.
// Если дата раньше всех семестров, возвращается самый ранний.
func SemesterFor(semesters []Semester, date time.Time) (Semester, bool) {
	if len(semesters) == 0 {
		return Semester{}, false
	}

	sorted := make([]Semester, len(semesters))
	copy(sorted, semesters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	d := utcDate(date)
	current := sorted[0]
	for _, s := range sorted[1:] {
		if utcDate(s.Start).After(d) {
			break
		}
		current = s
	}
	return current, true
}

func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isoMonday(utc time.Time) time.Time {
	return utc.AddDate(0, 0, -NormalizedWeekday(utc))
}
