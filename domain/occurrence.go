package domain

import (
	"sort"
	"strings"
	"time"
)

// OccurrencesOn возвращает занятия, которые проходят в указанную дату,
// упорядоченные по номеру пары. Записи без недель или без времени пары пропускаются.
func (s Semester) OccurrencesOn(lessons []Lesson, date time.Time) []Lesson {
	week := s.AcademicWeek(date)
	day := NormalizedWeekday(date)

	result := make([]Lesson, 0)
	for _, lesson := range lessons {
		if !lesson.wellFormed() {
			continue
		}
		if lesson.Weekday == day && lesson.HasWeek(week) {
			result = append(result, lesson)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Calls.Num < result[j].Calls.Num
	})

	return result
}

// agendaKey - одна и та же пара в списке занятий преподавателя
type agendaKey struct {
	discipline string
	weekday    int
	timeStart  string
}

// slotKey - одна и та же пара для индикаторов календаря
type slotKey struct {
	timeStart  string
	timeEnd    string
	lessonType string
}

// DedupCrossListed объединяет одинаковые занятия разных групп (потоковые лекции)
// в одну запись, дописывая названия групп через запятую.
func DedupCrossListed(lessons []Lesson) []Lesson {
	result := make([]Lesson, 0, len(lessons))
	index := make(map[agendaKey]int)

	for _, lesson := range lessons {
		if !lesson.wellFormed() {
			continue
		}
		key := agendaKey{
			discipline: lesson.Discipline.Name,
			weekday:    lesson.Weekday,
			timeStart:  lesson.Calls.TimeStart,
		}

		i, ok := index[key]
		if !ok {
			index[key] = len(result)
			result = append(result, lesson)
			continue
		}

		kept := &result[i]
		for _, name := range splitGroups(lesson.Group.Name) {
			switch {
			case kept.Group.Name == "":
				kept.Group.Name = name
			case !strings.Contains(kept.Group.Name, name):
				kept.Group.Name += ", " + name
			}
		}
	}

	return result
}

// DedupSlots оставляет по одной записи на каждое сочетание времени и типа занятия
func DedupSlots(lessons []Lesson) []Lesson {
	result := make([]Lesson, 0, len(lessons))
	seen := make(map[slotKey]struct{})

	for _, lesson := range lessons {
		if !lesson.wellFormed() {
			continue
		}
		key := slotKey{
			timeStart:  lesson.Calls.TimeStart,
			timeEnd:    lesson.Calls.TimeEnd,
			lessonType: lesson.TypeName(),
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, lesson)
	}

	return result
}

// EventsByDate строит индикаторы занятий для каждой даты.
// Даты без занятий в результат не попадают.
func (s Semester) EventsByDate(lessons []Lesson, dates []time.Time) EventSummary {
	summary := make(EventSummary)

	for _, date := range dates {
		slots := DedupSlots(s.OccurrencesOn(lessons, date))
		if len(slots) == 0 {
			continue
		}

		events := make([]Event, len(slots))
		for i, lesson := range slots {
			events[i] = Event{Name: lesson.TypeName()}
		}
		summary[DateKey(date)] = events
	}

	return summary
}

func (l Lesson) wellFormed() bool {
	return len(l.Weeks) > 0 && l.Calls != nil
}

func splitGroups(name string) []string {
	parts := strings.Split(name, ",")
	groups := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			groups = append(groups, p)
		}
	}
	return groups
}
