package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Vaflel/schedule-calendar/config"
	"github.com/Vaflel/schedule-calendar/domain"
	"github.com/Vaflel/schedule-calendar/infrastructure"
	"github.com/Vaflel/schedule-calendar/usecases"
	"github.com/Vaflel/schedule-calendar/web"
)

// openBrowser открывает URL в браузере по умолчанию
func openBrowser(log logrus.FieldLogger, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.WithError(err).Warn("Не удалось открыть браузер")
		log.Infof("Откройте вручную: %s", url)
	}
}

func newSource(cfg config.Config) infrastructure.LessonsSource {
	if cfg.Timetable.XLSFile != "" {
		return infrastructure.NewXLSSource(cfg.Timetable.XLSFile, cfg.Timetable.XLSCharset, cfg.Timetable.WeekdayBase)
	}
	return infrastructure.NewTimetableClient(infrastructure.ClientConfig{
		BaseURL:     cfg.Timetable.BaseURL,
		Timeout:     cfg.Timetable.Timeout,
		WeekdayBase: cfg.Timetable.WeekdayBase,
		UserAgent:   "schedule-calendar",
	})
}

func run(log *logrus.Logger, cfg config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var fallback *domain.Semester
	if cfg.SemesterStart != "" {
		sem, err := domain.ParseSemester("", cfg.SemesterStart, loc)
		if err != nil {
			return err
		}
		fallback = &sem
	}

	lessonsRepo := infrastructure.NewLessonsRepository(newSource(cfg), cfg.Timetable.CacheTTL, log)
	semesterRepo := infrastructure.NewYAMLSemesterRepository(cfg.SemestersFile, loc)
	exporter := infrastructure.NewICSExporter("-//schedule-calendar//RU")

	service := usecases.NewScheduleService(lessonsRepo, semesterRepo, exporter, usecases.ServiceConfig{
		Fallback: fallback,
		Location: loc,
		Log:      log,
	})

	server, err := web.NewServer(service, semesterRepo, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
			log.Infof("Открываем браузер: %s", url)
			openBrowser(log, url)
		}()
	}

	return server.Start(ctx, cfg.Server.Port)
}

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу настроек")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Ошибка загрузки настроек: %v", err)
	}

	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("Ошибка настройки логов: %v", err)
	}

	if err := run(log, cfg); err != nil {
		log.Fatalf("Ошибка запуска веб-сервера: %v", err)
	}
}
