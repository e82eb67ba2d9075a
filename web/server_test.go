package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vaflel/schedule-calendar/domain"
	"github.com/Vaflel/schedule-calendar/infrastructure"
	"github.com/Vaflel/schedule-calendar/usecases"
)

type fakeLessons struct {
	lessons map[string][]domain.Lesson
	err     error
}

func (f *fakeLessons) Lessons(_ context.Context, _ domain.ScheduleKind, name string) ([]domain.Lesson, error) {
	if f.err != nil {
		return nil, f.err
	}
	lessons, ok := f.lessons[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return lessons, nil
}

func lesson(weekday int, weeks []int, num int, start, end, discipline, lessonType string) domain.Lesson {
	return domain.Lesson{
		Weekday:    weekday,
		Weeks:      weeks,
		Calls:      &domain.Call{Num: num, TimeStart: start, TimeEnd: end},
		Discipline: domain.Discipline{Name: discipline},
		LessonType: &domain.LessonType{Name: lessonType},
		Teachers:   []domain.Teacher{{Name: "Иванов И.И."}},
		Group:      domain.Group{Name: "ИКБО-01-23"},
		Room:       &domain.Room{Name: "А-101"},
	}
}

func newTestServer(t *testing.T, lessons *fakeLessons) (*Server, *infrastructure.YAMLSemesterRepository) {
	logger, _ := test.NewNullLogger()

	semesters := infrastructure.NewYAMLSemesterRepository(filepath.Join(t.TempDir(), "semesters.yaml"), time.UTC)
	require.NoError(t, semesters.AddSemester(domain.NewSemester("Осень 2023", time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC))))

	exporter := infrastructure.NewICSExporter("-//schedule-calendar//RU")
	service := usecases.NewScheduleService(lessons, semesters, exporter, usecases.ServiceConfig{
		Location: time.UTC,
		Log:      logger,
		Now:      func() time.Time { return time.Date(2023, time.September, 4, 12, 0, 0, 0, time.UTC) },
	})

	server, err := NewServer(service, semesters, logger)
	require.NoError(t, err)
	return server, semesters
}

func defaultLessons() *fakeLessons {
	return &fakeLessons{lessons: map[string][]domain.Lesson{
		"ИКБО-01-23": {
			lesson(0, []int{2}, 2, "10:40:00", "12:10:00", "Математика", "лек"),
			lesson(0, []int{2}, 1, "09:00:00", "10:30:00", "Физика", "лаб"),
			lesson(2, []int{1, 3}, 1, "09:00:00", "10:30:00", "Химия", "пр"),
		},
	}}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func document(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestIndex(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)
	assert.Equal(t, 2, doc.Find("form.search").Length())
	assert.Equal(t, "3", doc.Find("input#name").AttrOr("minlength", ""))
}

func TestSchedulePage(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/schedule?group="+url.QueryEscape("ИКБО-01-23"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	doc := document(t, rec)
	assert.Equal(t, "Сентябрь 2023", doc.Find(".month-title").Text())
	assert.Contains(t, doc.Find(".academic-week").Text(), "2 неделя")
	assert.Equal(t, 35, doc.Find("td.day").Length())
	assert.Equal(t, 5, doc.Find(".day.other-month").Length())
	assert.Equal(t, 0, doc.Find(".no-data").Length())

	selected := doc.Find("td.day.selected")
	require.Equal(t, 1, selected.Length())
	assert.Equal(t, "2023-09-04", selected.AttrOr("data-date", ""))
	assert.Equal(t, 2, selected.Find(".event").Length())
	assert.Equal(t, 1, selected.Find(".event.event-lab").Length())

	wednesday := doc.Find(`td[data-date="2023-09-13"] .event`)
	assert.Equal(t, 1, wednesday.Length())
	assert.True(t, wednesday.HasClass("event-practice"))

	lessons := doc.Find(".agenda .lesson")
	require.Equal(t, 2, lessons.Length())
	assert.Contains(t, lessons.Eq(0).Find(".lesson-discipline").Text(), "Физика")
	assert.Contains(t, lessons.Eq(0).Find(".lesson-time").Text(), "09:00 - 10:30")
	assert.Contains(t, lessons.Eq(0).Find(".lesson-time").Text(), "90 мин")
	assert.Contains(t, lessons.Eq(1).Find(".lesson-discipline").Text(), "Математика")
	assert.Equal(t, "А-101", lessons.Eq(1).Find(".lesson-room").Text())

	assert.Equal(t, 7, doc.Find(".week-strip .week-day").Length())
	assert.Contains(t, doc.Find(".ics-link").AttrOr("href", ""), "from=2023-09-01")
}

func TestSchedulePageNavigation(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/schedule?group="+url.QueryEscape("ИКБО-01-23")+"&date=2023-09-13&month=2&year=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)
	assert.Equal(t, "Февраль 2024", doc.Find(".month-title").Text())
	assert.Equal(t, 35, doc.Find("td.day").Length())
	assert.Equal(t, 0, doc.Find("td.day.selected").Length())
	assert.Contains(t, doc.Find(".selected-date").Text(), "13 Сентябрь")

	prev, err := url.Parse(doc.Find(".prev-month").AttrOr("href", ""))
	require.NoError(t, err)
	assert.Equal(t, "1", prev.Query().Get("month"))
	assert.Equal(t, "2024", prev.Query().Get("year"))

	next, err := url.Parse(doc.Find(".next-month").AttrOr("href", ""))
	require.NoError(t, err)
	assert.Equal(t, "3", next.Query().Get("month"))
}

func TestSchedulePageNoData(t *testing.T) {
	server, _ := newTestServer(t, &fakeLessons{err: errors.New("connection refused")})

	rec := get(t, server, "/schedule?group=X")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)
	assert.Equal(t, 1, doc.Find(".no-data").Length())
	assert.Equal(t, 35, doc.Find("td.day").Length())
	assert.Equal(t, 0, doc.Find(".event").Length())
	assert.Equal(t, 1, doc.Find(".no-lessons").Length())
}

func TestScheduleBadRequests(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "no group", target: "/schedule", want: http.StatusBadRequest},
		{name: "bad date", target: "/schedule?group=A&date=04.09.2023", want: http.StatusBadRequest},
		{name: "bad month", target: "/schedule?group=A&month=13", want: http.StatusBadRequest},
		{name: "bad year", target: "/schedule?group=A&year=abc", want: http.StatusBadRequest},
		{name: "no teacher", target: "/teacher", want: http.StatusBadRequest},
		{name: "unknown kind", target: "/api/calendar/room/A", want: http.StatusBadRequest},
		{name: "unknown page", target: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, server, tt.target).Code)
		})
	}
}

func TestTeacherPageBadName(t *testing.T) {
	server, _ := newTestServer(t, &fakeLessons{err: domain.ErrBadName})

	rec := get(t, server, "/teacher?name="+url.QueryEscape("Ив"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPICalendar(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/api/calendar/group/"+url.PathEscape("ИКБО-01-23")+"?date=2023-09-13")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"selected":"2023-09-13"`)
	assert.Contains(t, body, `"academicWeek":3`)
	assert.Contains(t, body, `"2023-09-04":[`)
	assert.Contains(t, body, `"noData":false`)
}

func TestICS(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/ics/group/"+url.PathEscape("ИКБО-01-23")+"?from=2023-09-04&to=2023-09-13")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))

	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))

	assert.Equal(t, http.StatusBadRequest, get(t, server, "/ics/group/A?from=2023-09-10&to=2023-09-01").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, server, "/ics/group/A?from=bad").Code)
	assert.Equal(t, http.StatusNotFound, get(t, server, "/ics/group/unknown").Code)
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSemestersPages(t *testing.T) {
	server, repo := newTestServer(t, defaultLessons())

	rec := postForm(t, server, "/semesters", url.Values{"name": {"Весна 2024"}, "start": {"2024-02-09"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = get(t, server, "/semesters")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	names := doc.Find(".semester-name").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"Весна 2024", "Осень 2023"}, names)

	rec = get(t, server, "/semesters/edit/"+url.PathEscape("Весна 2024"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-02-09", document(t, rec).Find(`input[name="start"]`).AttrOr("value", ""))

	rec = postForm(t, server, "/semesters/edit/"+url.PathEscape("Весна 2024"), url.Values{"name": {"Весна 2024"}, "start": {"2024-02-12"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	updated, err := repo.GetSemester("Весна 2024")
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Start.Day())

	rec = postForm(t, server, "/semesters/delete/"+url.PathEscape("Весна 2024"), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = repo.GetSemester("Весна 2024")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSemestersErrors(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	assert.Equal(t, http.StatusBadRequest, postForm(t, server, "/semesters", url.Values{"name": {"X"}, "start": {"09.02.2024"}}).Code)
	assert.Equal(t, http.StatusBadRequest, postForm(t, server, "/semesters", url.Values{"start": {"2024-02-09"}}).Code)
	assert.Equal(t, http.StatusConflict, postForm(t, server, "/semesters", url.Values{"name": {"Осень 2023"}, "start": {"2023-09-01"}}).Code)
	assert.Equal(t, http.StatusNotFound, get(t, server, "/semesters/edit/nope").Code)
	assert.Equal(t, http.StatusNotFound, postForm(t, server, "/semesters/delete/nope", nil).Code)
}

func TestHealthMetricsStatic(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	rec := get(t, server, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	assert.Equal(t, http.StatusOK, get(t, server, "/metrics").Code)

	rec = get(t, server, "/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get(t, server, "/static/missing.js").Code)
}

func TestShutdown(t *testing.T) {
	server, _ := newTestServer(t, defaultLessons())

	done := make(chan error, 1)
	go func() { done <- server.Start(context.Background(), 0) }()

	// Start ждёт запроса на остановку, повторный запрос не паникует
	postForm(t, server, "/shutdown", nil)
	postForm(t, server, "/shutdown", nil)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не остановился")
	}
}
