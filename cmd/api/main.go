package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/handler"
	"classtrack/internal/httpmiddleware"
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

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
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

func run(cfg config.App, logger *zap.Logger) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	cal, err := attendance.NewCalendar(loc, cfg.Holidays)
	if err != nil {
		return err
	}
	schedule := attendance.Schedule{
		MorningLateHour:     cfg.Schedule.MorningLateHour,
		MorningAbsentHour:   cfg.Schedule.MorningAbsentHour,
		AfternoonLateHour:   cfg.Schedule.AfternoonLateHour,
		AfternoonAbsentHour: cfg.Schedule.AfternoonAbsentHour,
	}

	// Repositories: MySQL when reachable, in-memory fallback for local dev.
	var (
		rosterRepo  roster.Repository
		attRepo     attendance.Repository
		teacherRepo auth.TeacherRepository
	)
	db, err := store.NewDB(cfg.DatabaseDSN)
	if err == nil {
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		rosterRepo = roster.NewMySQLRepository(db.Client)
		attRepo = attendance.NewMySQLRepository(db.Client)
		teacherRepo = auth.NewMySQLTeacherRepository(db.Client)
		defer db.Close()
	} else {
		if cfg.Env != "dev" {
			return err
		}
		logger.Warn("db not reachable, using in-memory stores", zap.Error(err))
		rosterRepo = roster.NewMemoryRepository()
		attRepo = attendance.NewMemoryRepository()
		teacherRepo = auth.NewMemoryTeacherRepository()
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:notifications")
	}

	rosterSvc := roster.NewService(rosterRepo)
	attSvc := attendance.NewService(rosterSvc, attRepo, schedule, cal, q, logger)
	authSvc := auth.NewService(teacherRepo, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	if cfg.Env == "dev" {
		seedDevTeacher(authSvc, logger)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).
		WithRouteLimit("/v1/scans", cfg.ScanRatePerMin, cfg.ScanRatePerMin).
		Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	h := handler.New(rosterSvc, attSvc, authSvc, logger)
	h.Register(r, cfg.JWTSigningKey, cfg.JWTIssuer)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// seedDevTeacher ensures a login exists when running against an empty dev
// store so the app is usable out of the box.
func seedDevTeacher(authSvc *auth.Service, logger *zap.Logger) {
	ctx := context.Background()
	if _, _, err := authSvc.Login(ctx, "admin@school.local", "admin123"); err == nil {
		return
	}
	if _, err := authSvc.Register(ctx, "Dev Admin", "admin@school.local", "admin123"); err != nil {
		logger.Warn("seed dev teacher failed", zap.Error(err))
		return
	}
	logger.Info("seeded dev teacher", zap.String("email", "admin@school.local"))
}
