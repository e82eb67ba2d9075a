// Package web предоставляет функции для отображения календаря расписания
package web

import (
	"embed"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Vaflel/schedule-calendar/domain"
	"github.com/Vaflel/schedule-calendar/usecases"
)

//go:embed templates/*.html static/*
var templates embed.FS

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayNames = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// CellData - клетка месячной сетки
type CellData struct {
	Day            int
	Key            string
	Link           string
	IsCurrentMonth bool
	IsToday        bool
	IsSelected     bool
	Events         []EventData
}

// EventData - цветной индикатор занятия в клетке
type EventData struct {
	Name  string
	Class string
}

// LessonData - строка списка занятий выбранного дня
type LessonData struct {
	Num        int
	Time       string
	Duration   string
	Discipline string
	Type       string
	Class      string
	Teachers   string
	Group      string
	Room       string
}

// WeekDayData - день в полосе текущей недели
type WeekDayData struct {
	Name       string
	Day        int
	Link       string
	IsSelected bool
}

// CalendarPage содержит все данные, необходимые для отображения страницы календаря
type CalendarPage struct {
	Title         string
	Kind          string
	Name          string
	MonthTitle    string
	SelectedTitle string
	AcademicWeek  int
	Semester      string
	Weekdays      []string
	Weeks         [][]CellData
	WeekStrip     []WeekDayData
	Agenda        []LessonData
	PrevLink      string
	NextLink      string
	TodayLink     string
	ICSLink       string
	NoData        bool
}

// categoryClass сопоставляет категорию типа занятия CSS-классу
func categoryClass(name string) string {
	return "event-" + string(domain.CategoryOf(name))
}

// scheduleLink строит ссылку на страницу расписания для даты и месяца
func scheduleLink(kind domain.ScheduleKind, name string, date time.Time, month time.Month, year int) string {
	q := url.Values{}
	path := "/schedule"
	if kind == domain.KindTeacher {
		path = "/teacher"
		q.Set("name", name)
	} else {
		q.Set("group", name)
	}
	if !date.IsZero() {
		q.Set("date", domain.DateKey(date))
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(int(month)))
		q.Set("year", strconv.Itoa(year))
	}
	return path + "?" + q.Encode()
}

func icsLink(kind domain.ScheduleKind, name string, month time.Month, year int, loc *time.Location) string {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, -1)
	q := url.Values{}
	q.Set("from", domain.DateKey(from))
	q.Set("to", domain.DateKey(to))
	return fmt.Sprintf("/ics/%s/%s?%s", kind, url.PathEscape(name), q.Encode())
}

// NewCalendarPage подготавливает данные для шаблона календаря
func NewCalendarPage(view usecases.CalendarView) CalendarPage {
	page := CalendarPage{
		Title:         view.Name,
		Kind:          string(view.Kind),
		Name:          view.Name,
		MonthTitle:    fmt.Sprintf("%s %d", monthNames[view.Month-1], view.Year),
		SelectedTitle: fmt.Sprintf("%d %s, %s", view.Selected.Day(), monthNames[view.Selected.Month()-1], weekdayNames[domain.NormalizedWeekday(view.Selected)]),
		AcademicWeek:  view.AcademicWeek,
		Semester:      view.Semester.Name,
		Weekdays:      weekdayNames[:],
		PrevLink:      scheduleLink(view.Kind, view.Name, view.Selected, view.PrevMonth, view.PrevYear),
		NextLink:      scheduleLink(view.Kind, view.Name, view.Selected, view.NextMonth, view.NextYear),
		TodayLink:     scheduleLink(view.Kind, view.Name, time.Time{}, 0, 0),
		ICSLink:       icsLink(view.Kind, view.Name, view.Month, view.Year, view.Selected.Location()),
		NoData:        view.NoData,
	}

	for _, week := range domain.Weeks(view.Days) {
		row := make([]CellData, len(week))
		for i, cell := range week {
			row[i] = CellData{
				Day:            cell.Date.Day(),
				Key:            cell.Key(),
				Link:           scheduleLink(view.Kind, view.Name, cell.Date, view.Month, view.Year),
				IsCurrentMonth: cell.IsCurrentMonth,
				IsToday:        cell.IsToday,
				IsSelected:     cell.IsSelected,
			}
			for _, e := range view.Events[cell.Key()] {
				row[i].Events = append(row[i].Events, EventData{Name: e.Name, Class: categoryClass(e.Name)})
			}
		}
		page.Weeks = append(page.Weeks, row)
	}

	for i, day := range view.WeekDays {
		page.WeekStrip = append(page.WeekStrip, WeekDayData{
			Name:       weekdayNames[i],
			Day:        day.Day(),
			Link:       scheduleLink(view.Kind, view.Name, day, 0, 0),
			IsSelected: domain.SameDay(day, view.Selected),
		})
	}

	for _, l := range view.Agenda {
		page.Agenda = append(page.Agenda, LessonData{
			Num:        l.Calls.Num,
			Time:       l.Calls.Short(),
			Duration:   formatDuration(l.Calls.Duration()),
			Discipline: l.Discipline.Name,
			Type:       l.TypeName(),
			Class:      categoryClass(l.TypeName()),
			Teachers:   l.TeacherNames(),
			Group:      l.Group.Name,
			Room:       l.RoomName(),
		})
	}

	return page
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("%d мин", int(d.Minutes()))
}
