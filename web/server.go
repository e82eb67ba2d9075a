package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Vaflel/schedule-calendar/domain"
	"github.com/Vaflel/schedule-calendar/usecases"
)

const dateLayout = "2006-01-02"

type Server struct {
	service      *usecases.ScheduleService
	semesterRepo usecases.SemesterRepository
	log          logrus.FieldLogger
	pages        map[string]*template.Template
	router       chi.Router

	mu       sync.Mutex
	server   *http.Server
	shutdown chan struct{}
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// calendarResponse - JSON-представление календаря
type calendarResponse struct {
	Kind         domain.ScheduleKind `json:"kind"`
	Name         string              `json:"name"`
	Month        int                 `json:"month"`
	Year         int                 `json:"year"`
	Selected     string              `json:"selected"`
	AcademicWeek int                 `json:"academicWeek"`
	Semester     string              `json:"semester"`
	Days         []domain.DayCell    `json:"days"`
	Events       domain.EventSummary `json:"events"`
	Agenda       []domain.Lesson     `json:"agenda"`
	NoData       bool                `json:"noData"`
}

type semesterData struct {
	Name  string
	Start string
}

func NewServer(service *usecases.ScheduleService, semesterRepo usecases.SemesterRepository, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	pages, err := loadPages("index.html", "calendar.html", "semesters.html", "edit_semester.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		service:      service,
		semesterRepo: semesterRepo,
		log:          log,
		pages:        pages,
		shutdown:     make(chan struct{}),
	}
	s.router = s.routes()
	return s, nil
}

func loadPages(names ...string) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(templates, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки шаблона %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/schedule", s.handleSchedule(domain.KindGroup, "group"))
	r.Get("/teacher", s.handleSchedule(domain.KindTeacher, "name"))
	r.Get("/api/calendar/{kind}/{name}", s.handleAPICalendar)
	r.Get("/ics/{kind}/{name}", s.handleICS)

	r.Get("/semesters", s.handleSemesters)
	r.Post("/semesters", s.handleAddSemester)
	r.Get("/semesters/edit/{name}", s.handleEditSemester)
	r.Post("/semesters/edit/{name}", s.handleUpdateSemester)
	r.Post("/semesters/delete/{name}", s.handleDeleteSemester)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/shutdown", s.handleShutdown)
	r.Get("/static/*", s.handleStatic)

	return r
}

// ServeHTTP позволяет использовать сервер как http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start запускает сервер и блокируется до отмены ctx или запроса /shutdown
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("🚀 Сервер запущен на http://localhost%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.shutdown:
	}

	s.log.Info("Завершение работы сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при завершении работы: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("запрос")
	})
}

func (s *Server) render(w http.ResponseWriter, page string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.log.WithError(err).Errorf("Ошибка рендеринга шаблона %s", page)
		http.Error(w, "Ошибка сервера", http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", nil)
}

// parseQuery разбирает date, month и year. Пустые значения допустимы.
func parseQuery(r *http.Request, loc *time.Location) (usecases.Query, error) {
	var q usecases.Query
	values := r.URL.Query()

	if v := values.Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return q, fmt.Errorf("некорректная дата %q", v)
		}
		q.Date = d
	}
	if v := values.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return q, fmt.Errorf("некорректный месяц %q", v)
		}
		q.Month = time.Month(m)
	}
	if v := values.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return q, fmt.Errorf("некорректный год %q", v)
		}
		q.Year = y
	}
	return q, nil
}

// viewError сопоставляет ошибку сервиса коду ответа
func viewError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBadName), errors.Is(err, usecases.ErrBadRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Расписание не найдено"
	case errors.Is(err, usecases.ErrNoSemester):
		return http.StatusServiceUnavailable, "Не задан семестр, добавьте его на странице /semesters"
	}
	return http.StatusInternalServerError, "Ошибка сервера"
}

func (s *Server) handleSchedule(kind domain.ScheduleKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r, s.service.Location())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q.Kind = kind
		q.Name = r.URL.Query().Get(param)
		if strings.TrimSpace(q.Name) == "" {
			http.Error(w, fmt.Sprintf("Не указан параметр %s", param), http.StatusBadRequest)
			return
		}

		view, err := s.service.CalendarView(r.Context(), q)
		if err != nil {
			status, msg := viewError(err)
			if status == http.StatusInternalServerError {
				s.log.WithError(err).Error("Ошибка построения календаря")
			}
			http.Error(w, msg, status)
			return
		}

		s.render(w, "calendar.html", NewCalendarPage(view))
	}
}

func (s *Server) handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}
	q, err := parseQuery(r, s.service.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}
	q.Kind = kind
	q.Name = chi.URLParam(r, "name")

	view, err := s.service.CalendarView(r.Context(), q)
	if err != nil {
		status, msg := viewError(err)
		writeJSON(w, status, StatusResponse{Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		Kind:         view.Kind,
		Name:         view.Name,
		Month:        int(view.Month),
		Year:         view.Year,
		Selected:     domain.DateKey(view.Selected),
		AcademicWeek: view.AcademicWeek,
		Semester:     view.Semester.Name,
		Days:         view.Days,
		Events:       view.Events,
		Agenda:       view.Agenda,
		NoData:       view.NoData,
	})
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := chi.URLParam(r, "name")
	loc := s.service.Location()

	today := s.service.Today()
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, -1)
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.ParseInLocation(dateLayout, v, loc); err != nil {
			http.Error(w, fmt.Sprintf("некорректная дата from %q", v), http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.ParseInLocation(dateLayout, v, loc); err != nil {
			http.Error(w, fmt.Sprintf("некорректная дата to %q", v), http.StatusBadRequest)
			return
		}
	}

	calendar, err := s.service.Export(r.Context(), kind, name, from, to)
	if err != nil {
		status, msg := viewError(err)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).Error("Ошибка выгрузки календаря")
			msg = "Расписание недоступно"
			status = http.StatusBadGateway
		}
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.Write([]byte(calendar))
}

func (s *Server) handleSemesters(w http.ResponseWriter, r *http.Request) {
	semesters, err := s.semesterRepo.LoadSemesters()
	if err != nil {
		s.log.WithError(err).Error("Ошибка загрузки семестров")
		http.Error(w, "Ошибка сервера", http.StatusInternalServerError)
		return
	}

	// новые семестры сверху
	sort.SliceStable(semesters, func(i, j int) bool {
		return semesters[i].Start.After(semesters[j].Start)
	})

	data := make([]semesterData, len(semesters))
	for i, sem := range semesters {
		data[i] = semesterData{Name: sem.Name, Start: domain.DateKey(sem.Start)}
	}

	s.render(w, "semesters.html", struct{ Semesters []semesterData }{data})
}

// semesterFromForm разбирает форму семестра
func (s *Server) semesterFromForm(r *http.Request) (domain.Semester, error) {
	if err := r.ParseForm(); err != nil {
		return domain.Semester{}, errors.New("Неверные данные формы")
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		return domain.Semester{}, errors.New("Поле name обязательно")
	}
	return domain.ParseSemester(name, r.FormValue("start"), s.service.Location())
}

func (s *Server) handleAddSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := s.semesterFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.semesterRepo.AddSemester(semester); err != nil {
		s.log.WithError(err).Error("Ошибка добавления семестра")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	http.Redirect(w, r, "/semesters", http.StatusSeeOther)
}

func (s *Server) handleEditSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := s.semesterRepo.GetSemester(chi.URLParam(r, "name"))
	if err != nil {
		s.log.WithError(err).Warn("Ошибка получения семестра")
		http.Error(w, "Семестр не найден", http.StatusNotFound)
		return
	}

	s.render(w, "edit_semester.html", semesterData{Name: semester.Name, Start: domain.DateKey(semester.Start)})
}

func (s *Server) handleUpdateSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := s.semesterFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.semesterRepo.UpdateSemester(chi.URLParam(r, "name"), semester); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Семестр не найден", http.StatusNotFound)
			return
		}
		s.log.WithError(err).Error("Ошибка обновления семестра")
		http.Error(w, "Ошибка сервера", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/semesters", http.StatusSeeOther)
}

func (s *Server) handleDeleteSemester(w http.ResponseWriter, r *http.Request) {
	if err := s.semesterRepo.DeleteSemester(chi.URLParam(r, "name")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Семестр не найден", http.StatusNotFound)
			return
		}
		s.log.WithError(err).Error("Ошибка удаления семестра")
		http.Error(w, "Ошибка сервера", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/semesters", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "ok"})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Сервер завершает работу"})

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	filePath := "static/" + chi.URLParam(r, "*")
	content, err := templates.ReadFile(filePath)
	if err != nil {
		http.Error(w, "Файл не найден", http.StatusNotFound)
		return
	}

	if strings.HasSuffix(filePath, ".css") {
		w.Header().Set("Content-Type", "text/css")
	} else if strings.HasSuffix(filePath, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	}
	w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
