package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-scheduling-api/api/swagger"
	"github.com/noah-isme/sma-scheduling-api/internal/handler"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	"github.com/noah-isme/sma-scheduling-api/internal/router"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	"github.com/noah-isme/sma-scheduling-api/migrations"
	"github.com/noah-isme/sma-scheduling-api/pkg/cache"
	"github.com/noah-isme/sma-scheduling-api/pkg/config"
	"github.com/noah-isme/sma-scheduling-api/pkg/database"
	"github.com/noah-isme/sma-scheduling-api/pkg/jobs"
	"github.com/noah-isme/sma-scheduling-api/pkg/logger"
	"github.com/noah-isme/sma-scheduling-api/pkg/validation"
)

// @title SMA Scheduling API
// @version 1.0.0
// @description Classroom scheduling validation and enrollment capacity management.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.UseWithGin()

	if cfg.Migrations.AutoApply {
		if err := migrations.Up(cfg.Database.URL()); err != nil {
			return err
		}
		logr.Info("schema migrations applied")
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var (
		redisClient *redis.Client
		cacheSvc    *service.CacheService
	)
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, cfg.Cache.Prefix+":", logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	examRepo := repository.NewExamRepository(db)
	classRepo := repository.NewSchoolClassRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tx := repository.NewTransactor(db, nil)

	audit := service.NewAuditService(auditRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, metrics, logr)
	audit.Start(ctx)
	defer audit.Stop()

	validate := validation.Validator()
	availability := service.NewAvailabilityService(classroomRepo, lessonRepo, examRepo, cacheSvc, cfg.Cache.TTL, logr)
	capacity := service.NewCapacityService(classroomRepo, classRepo, registrationRepo, logr)
	pipeline := service.NewSchedulingPipeline(userRepo, classroomRepo, classRepo, subjectRepo, registrationRepo, capacity, availability, metrics, logr)

	classroomSvc := service.NewClassroomService(classroomRepo, availability, tx, cacheSvc, audit, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, classroomRepo, pipeline, tx, cacheSvc, audit, metrics, validate, logr)
	examSvc := service.NewExamService(examRepo, courseRepo, classroomRepo, pipeline, tx, cacheSvc, audit, metrics, validate, logr)
	classSvc := service.NewSchoolClassService(classRepo, registrationRepo, userRepo, tx, cacheSvc, cfg.Cache.TTL, audit, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, classRepo, classSvc, userRepo, tx, cacheSvc, audit, metrics, validate, logr)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	checks := map[string]handler.Pinger{"database": handler.PingerFunc(db.PingContext)}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         tokens,
	}, router.Handlers{
		Classrooms:    handler.NewClassroomHandler(classroomSvc, availability, capacity),
		Lessons:       handler.NewLessonHandler(lessonSvc),
		Exams:         handler.NewExamHandler(examSvc),
		SchoolClasses: handler.NewSchoolClassHandler(classSvc, capacity),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Health:        handler.NewHealthHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
