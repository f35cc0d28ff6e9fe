// Worker consumes record-change events and delivers guardian notifications.
// Delivery is best-effort: a failed send is logged and counted, never retried
// here, and never blocks the write path that produced the event.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/metrics"
	"classtrack/internal/notify"
	"classtrack/internal/queue"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CLASSTRACK_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	// The worker has no API surface, but its delivery counters still need a
	// scrape target.
	obs := observabilityServer(cfg.WorkerPort, redisClient)
	go func() {
		logger.Info("worker metrics listening", zap.String("port", cfg.WorkerPort))
		if err := obs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:notifications")
	}

	var mailer notify.Mailer
	if cfg.Mail.Backend == "sendgrid" {
		mailer = notify.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
		logger.Info("sendgrid mailer configured", zap.String("from", cfg.Mail.FromAddress))
	} else {
		mailer = notify.NewConsoleMailer(logger)
		logger.Info("console mailer in use, emails will be logged only")
	}

	var summaryCron *cron.Cron
	if cfg.Summary.Enabled {
		summaryCron, err = startSummaryCron(ctx, cfg, mailer, logger)
		if err != nil {
			logger.Fatal("summary cron failed", zap.Error(err))
		}
		defer summaryCron.Stop()
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for events")
	for msg := range messages {
		if msg.Type != notify.EventType {
			continue
		}

		var ev notify.Event
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Warn("bad event payload", zap.Error(err))
			continue
		}

		email, ok := notify.GuardianEmailFor(ev)
		if !ok {
			metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
			logger.Debug("no guardian email on file", zap.String("student", ev.StudentID))
			continue
		}

		sendCtx, sendCancel := context.WithTimeout(ctx, 10*time.Second)
		err := mailer.Send(sendCtx, email)
		sendCancel()
		if err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			logger.Error("notification send failed",
				zap.String("student", ev.StudentID),
				zap.Error(err),
			)
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		logger.Info("guardian notified",
			zap.String("student", ev.StudentID),
			zap.String("status", ev.Status),
			zap.String("period", ev.Period),
		)
	}

	logger.Info("worker stopped")
}

// observabilityServer serves /metrics and /healthz for the worker process.
func observabilityServer(port string, redisClient *store.Redis) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !redisClient.Healthy(r.Context()) {
			http.Error(w, `{"status":"redis unreachable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "production" || env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// startSummaryCron schedules the end-of-day stats email. It reads straight
// from the database so it works even when the API runs on another host.
func startSummaryCron(ctx context.Context, cfg config.App, mailer notify.Mailer, logger *zap.Logger) (*cron.Cron, error) {
	db, err := store.NewDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cal, err := attendance.NewCalendar(loc, cfg.Holidays)
	if err != nil {
		return nil, err
	}

	rosterSvc := roster.NewService(roster.NewMySQLRepository(db.Client))
	attRepo := attendance.NewMySQLRepository(db.Client)

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Summary.CronSpec, func() {
		now := time.Now()
		if !cal.IsSchoolDay(now) {
			return
		}
		day := cal.DateKey(now)

		students, err := rosterSvc.List(ctx, "")
		if err != nil {
			logger.Error("summary: load roster", zap.Error(err))
			return
		}
		records, err := attRepo.ListByDay(ctx, day, "")
		if err != nil {
			logger.Error("summary: load records", zap.Error(err))
			return
		}

		stats := attendance.Aggregate(students, records, "")
		var lines []notify.SummaryLine
		for _, sec := range stats {
			for _, p := range []attendance.Period{attendance.PeriodMorning, attendance.PeriodAfternoon} {
				t := sec.Periods[p]
				lines = append(lines, notify.SummaryLine{
					Section: sec.Section,
					Period:  string(p),
					Present: t.Present,
					Late:    t.Late,
					Absent:  t.Absent,
				})
			}
		}

		for _, recipient := range cfg.Summary.Recipients {
			if err := mailer.Send(ctx, notify.SummaryEmailFor(recipient, day, lines)); err != nil {
				logger.Error("summary send failed", zap.String("to", recipient), zap.Error(err))
			}
		}
		logger.Info("daily summary sent", zap.String("date", day), zap.Int("recipients", len(cfg.Summary.Recipients)))
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
