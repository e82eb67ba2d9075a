package infrastructure

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Vaflel/schedule-calendar/domain"
)

// defaultFetchTimeout ограничивает общий запрос к источнику, который
// продолжается после отмены запроса вызывающего
const defaultFetchTimeout = 30 * time.Second

// LessonsSource - внешний источник расписания (API или XLS-файл)
type LessonsSource interface {
	GroupLessons(ctx context.Context, name string) ([]domain.Lesson, error)
	TeacherLessons(ctx context.Context, name string) ([]domain.Lesson, error)
}

type cacheEntry struct {
	lessons []domain.Lesson
	expiry  time.Time // время истечения записи
}

// LessonsCache хранит расписания в оперативной памяти с временем жизни ttl.
// Доступ синхронизирован мьютексом.
type LessonsCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]cacheEntry
}

// NewLessonsCache создаёт кэш с указанным временем жизни записей
func NewLessonsCache(ttl time.Duration) *LessonsCache {
	return &LessonsCache{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]cacheEntry),
	}
}

// Get возвращает занятия по ключу, если запись есть и не истекла.
// Истёкшая запись удаляется.
func (c *LessonsCache) Get(key string) ([]domain.Lesson, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if c.now().After(entry.expiry) {
		delete(c.data, key)
		return nil, false
	}

	return entry.lessons, true
}

// Set сохраняет занятия по ключу
func (c *LessonsCache) Set(key string, lessons []domain.Lesson) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		lessons: lessons,
		expiry:  c.now().Add(c.ttl),
	}
}

// LessonsRepositoryImpl получает расписания из источника, отбрасывает
// некорректные записи и кэширует результат. Одновременные запросы одного
// расписания объединяются в один запрос к источнику.
type LessonsRepositoryImpl struct {
	source    LessonsSource
	cache     *LessonsCache
	validator *domain.Validator
	group     singleflight.Group
	log       logrus.FieldLogger

	fetchTimeout time.Duration
}

// NewLessonsRepository создаёт репозиторий поверх источника
func NewLessonsRepository(source LessonsSource, ttl time.Duration, log logrus.FieldLogger) *LessonsRepositoryImpl {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LessonsRepositoryImpl{
		source:    source,
		cache:     NewLessonsCache(ttl),
		validator: domain.NewValidator(),
		log:       log,

		fetchTimeout: defaultFetchTimeout,
	}
}

// Lessons возвращает занятия группы или преподавателя.
// Возвращаемый срез общий для всех вызывающих и не должен изменяться.
func (r *LessonsRepositoryImpl) Lessons(ctx context.Context, kind domain.ScheduleKind, name string) ([]domain.Lesson, error) {
	key := string(kind) + ":" + strings.ToLower(strings.TrimSpace(name))

	if cached, ok := r.cache.Get(key); ok {
		cacheHits.WithLabelValues(string(kind)).Inc()
		return cached, nil
	}

	// запрос к источнику общий для всех ожидающих, поэтому отмена
	// одного вызывающего не должна его прерывать
	ch := r.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		lessons, err := r.fetch(fetchCtx, kind, name)
		if err != nil {
			feedRequests.WithLabelValues(string(kind), "error").Inc()
			return nil, err
		}
		feedRequests.WithLabelValues(string(kind), "ok").Inc()

		valid, skipped := r.validator.Sanitize(lessons)
		if len(skipped) > 0 {
			skippedLessons.Add(float64(len(skipped)))
			r.log.WithFields(logrus.Fields{
				"kind":    kind,
				"name":    name,
				"skipped": len(skipped),
			}).Warnf("отброшены некорректные записи расписания: %v", skipped[0])
		}

		r.cache.Set(key, valid)
		return valid, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Lesson), nil
	}
}

func (r *LessonsRepositoryImpl) fetch(ctx context.Context, kind domain.ScheduleKind, name string) ([]domain.Lesson, error) {
	switch kind {
	case domain.KindTeacher:
		return r.source.TeacherLessons(ctx, name)
	case domain.KindGroup:
		return r.source.GroupLessons(ctx, name)
	}
	_, err := domain.ParseKind(string(kind))
	return nil, err
}
