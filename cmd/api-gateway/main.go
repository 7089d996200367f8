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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fyp-portal-api/api/swagger"
	"github.com/noah-isme/fyp-portal-api/internal/handler"
	"github.com/noah-isme/fyp-portal-api/internal/repository"
	"github.com/noah-isme/fyp-portal-api/internal/service"
	"github.com/noah-isme/fyp-portal-api/migrations"
	"github.com/noah-isme/fyp-portal-api/pkg/cache"
	"github.com/noah-isme/fyp-portal-api/pkg/config"
	"github.com/noah-isme/fyp-portal-api/pkg/database"
	"github.com/noah-isme/fyp-portal-api/pkg/jobs"
	"github.com/noah-isme/fyp-portal-api/pkg/logger"
	"github.com/noah-isme/fyp-portal-api/pkg/storage"
)

// @title Final-Project Portal API
// @version 1.0.0
// @description Defense committee assignment, defense scheduling and schedule exports.
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

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		migrator, err := database.NewMigrator(db, migrations.FS, ".", logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to init migrator", "error", err)
		}
		if err := migrator.Up(ctx); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
	}

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, last-run summaries will not be cached", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	advisorRepo := repository.NewAdvisorRepository(db)
	majorRepo := repository.NewMajorRepository(db)
	projectRepo := repository.NewProjectGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	var cacheStore service.CacheRepository
	if cacheRepo != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Defense.LastRunTTL, logr, cacheStore != nil)

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	settingsSvc := service.NewDefenseSettingsService(settingRepo, validate, logr, service.DefenseSettingsServiceConfig{
		DefaultTimezone: cfg.Exports.Timezone,
	})
	schedulerSvc := service.NewDefenseSchedulerService(settingsSvc, advisorRepo, majorRepo, projectRepo, studentRepo, cacheSvc, metricsSvc, validate, logr, service.DefenseSchedulerConfig{
		Enabled:     cfg.Defense.Enabled,
		HorizonDays: cfg.Defense.HorizonDays,
		LastRunTTL:  cfg.Defense.LastRunTTL,
	})
	advisorSvc := service.NewAdvisorService(advisorRepo, projectRepo, logr)
	projectSvc := service.NewProjectService(projectRepo, studentRepo, advisorRepo, settingsSvc, validate, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(projectRepo, advisorRepo, studentRepo, settingsSvc, exportStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
		Timezone:  cfg.Exports.Timezone,
	}, logr, service.ExportRenderers{})

	exportWorker := service.NewExportWorker(exportJobRepo, exportSvc, metricsSvc, logr)
	exportQueue := jobs.NewQueue("defense-exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxRetries:  cfg.Exports.WorkerRetries,
		RetryDelay:  2 * time.Second,
		Logger:      logr,
		OnExhausted: exportWorker.Exhausted,
	})
	exportJobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, validate, logr, service.ExportJobServiceConfig{
		Enabled:         cfg.Exports.Enabled,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	if cfg.Exports.Enabled {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	checks := map[string]handler.Pinger{
		"postgres": handler.PingerFunc(db.PingContext),
	}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo
	}

	router := newRouter(cfg, logr, routerDeps{
		tokens:   tokenSvc,
		metrics:  metricsSvc,
		defense:  handler.NewDefenseHandler(schedulerSvc, settingsSvc),
		advisors: handler.NewAdvisorHandler(advisorSvc),
		projects: handler.NewProjectHandler(projectSvc),
		exports:  handler.NewExportHandler(exportJobSvc),
		ops:      handler.NewMetricsHandler(metricsSvc, checks),
	})

	serve(ctx, logr, router, cfg.Port)
}

func serve(ctx context.Context, logr *zap.Logger, router http.Handler, port int) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
