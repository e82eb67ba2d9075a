package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vaflel/schedule-calendar/domain"
)

const (
	groupPath         = "/api/groups/"
	teacherSearchPath = "/api/teachers/search/"

	minTeacherNameLen = 3
)

// groupResponse - ответ API с расписанием группы
type groupResponse struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Lessons []domain.Lesson `json:"lessons"`
}

// teacherResponse - элемент ответа поиска преподавателя
type teacherResponse struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Lessons []domain.Lesson `json:"lessons"`
}

// ClientConfig - настройки клиента API расписания
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	WeekdayBase int // с какого числа API нумерует дни недели (понедельник)
	UserAgent   string
}

// TimetableClient получает расписание групп и преподавателей из API расписания
type TimetableClient struct {
	baseURL     string
	weekdayBase int
	userAgent   string
	client      *http.Client
}

// NewTimetableClient создаёт клиент. Адрес API передаётся явно, глобальных настроек нет.
func NewTimetableClient(cfg ClientConfig) *TimetableClient {
	jar, _ := cookiejar.New(nil)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "schedule-calendar/1.0"
	}
	return &TimetableClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		weekdayBase: cfg.WeekdayBase,
		userAgent:   userAgent,
		client:      &http.Client{Jar: jar, Timeout: timeout},
	}
}

func (c *TimetableClient) createRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")

	return req, nil
}

func (c *TimetableClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := c.createRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("API отклонил запрос (%d): %w", resp.StatusCode, domain.ErrBadName)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("неожиданный статус API: %d", resp.StatusCode)
	}

	bodyStr := string(bodyBytes)
	if strings.HasPrefix(strings.TrimSpace(bodyStr), "<") {
		if title := htmlTitle(bodyStr); title != "" {
			return fmt.Errorf("API вернул HTML вместо JSON: %s", title)
		}
		return fmt.Errorf("API вернул HTML вместо JSON")
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("ошибка разбора JSON: %w (первые 200 символов: %s)", err, truncate(bodyStr, 200))
	}

	return nil
}

// GroupLessons возвращает занятия группы
func (c *TimetableClient) GroupLessons(ctx context.Context, name string) ([]domain.Lesson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("пустое название группы: %w", domain.ErrBadName)
	}

	var group groupResponse
	if err := c.get(ctx, groupPath+url.PathEscape(name), &group); err != nil {
		return nil, fmt.Errorf("не удалось получить расписание группы %s: %w", name, err)
	}

	groupName := group.Name
	if groupName == "" {
		groupName = name
	}

	lessons := c.normalize(group.Lessons)
	for i := range lessons {
		if lessons[i].Group.Name == "" {
			lessons[i].Group.Name = groupName
		}
	}
	return lessons, nil
}

// TeacherLessons ищет преподавателя по имени и возвращает занятия первого найденного
func (c *TimetableClient) TeacherLessons(ctx context.Context, name string) ([]domain.Lesson, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minTeacherNameLen {
		return nil, fmt.Errorf("имя преподавателя должно быть не менее %d символов: %w", minTeacherNameLen, domain.ErrBadName)
	}

	var teachers []teacherResponse
	if err := c.get(ctx, teacherSearchPath+url.PathEscape(name), &teachers); err != nil {
		return nil, fmt.Errorf("не удалось найти преподавателя %s: %w", name, err)
	}

	// если найдено несколько преподавателей, берём первого
	if len(teachers) == 0 {
		return nil, fmt.Errorf("преподаватель %s: %w", name, domain.ErrNotFound)
	}

	return c.normalize(teachers[0].Lessons), nil
}

// normalize переводит номер дня недели API в нумерацию с понедельника = 0
func (c *TimetableClient) normalize(lessons []domain.Lesson) []domain.Lesson {
	result := make([]domain.Lesson, len(lessons))
	for i, l := range lessons {
		l.Weekday -= c.weekdayBase
		result[i] = l
	}
	return result
}

// htmlTitle достаёт заголовок страницы, которую прокси или балансировщик
// отдают вместо ответа API
func htmlTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return truncate(title, 100)
}

// truncate обрезает строку до maxLen байт, не разрывая символы UTF-8
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
