package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_feed_requests_total",
		Help: "Запросы расписания к источнику по виду и результату.",
	}, []string{"kind", "result"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_cache_hits_total",
		Help: "Ответы из кэша расписаний.",
	}, []string{"kind"})

	skippedLessons = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedule_lessons_skipped_total",
		Help: "Некорректные записи расписания, отброшенные при загрузке.",
	})
)
