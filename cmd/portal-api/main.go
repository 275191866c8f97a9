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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
)

// @title Campus Portal API
// @version 1.0.0
// @description Accounts, boards, tutor chat, lectures and self attendance for a campus portal
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

	metrics := service.NewMetricsService()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := openBackend(ctx, cfg)
	cancel()
	if err != nil {
		logr.Fatal("failed to open collection store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	store := repository.NewStore(backend, cfg.Store.KeyPrefix, logr.Named("store"), metrics)
	defer store.Close() //nolint:errcheck
	repo := repository.NewCollectionRepository(store)

	validate := validator.New()
	authSvc := service.NewAuthService(repo, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret:        cfg.JWT.Secret,
		AccessTokenExpiry:        cfg.JWT.Expiration,
		PasswordTicketExpiry:     cfg.JWT.PasswordTicketTTL,
		Issuer:                   "campus-portal-api",
		StudentTemporaryPassword: cfg.Auth.StudentTemporaryPassword,
		StaffTemporaryPassword:   cfg.Auth.StaffTemporaryPassword,
	})

	if cfg.Seed.Enabled {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := service.NewSeedService(repo, authSvc, logr.Named("seed")).Seed(seedCtx)
		seedCancel()
		if err != nil {
			logr.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Announcements: handler.NewAnnouncementHandler(service.NewAnnouncementService(repo, validate, logr.Named("announcements"))),
		Discussions:   handler.NewDiscussionHandler(service.NewDiscussionService(repo, validate, logr.Named("discussions"))),
		LostFound:     handler.NewLostFoundHandler(service.NewLostFoundService(repo, validate, logr.Named("lostfound"))),
		Feed:          handler.NewFeedHandler(service.NewFeedService(repo)),
		Tutor:         handler.NewTutorHandler(service.NewTutorService(repo, validate, logr.Named("tutor"), int64(cfg.Attachments.MaxBytes))),
		Lectures:      handler.NewLectureHandler(service.NewLectureService(repo, validate, logr.Named("lectures"))),
		Attendance:    handler.NewAttendanceHandler(service.NewAttendanceService(repo, validate, logr.Named("attendance"))),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	health := handler.NewHealthHandler(store)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var authLimiter gin.HandlerFunc
	if cfg.RateLimit.PerMinute > 0 {
		authLimiter = middleware.NewTokenBucket(0, cfg.RateLimit.PerMinute, metrics).GinMiddleware()
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, authSvc, authLimiter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (repository.Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return repository.NewMemoryBackend(), nil
	case config.StoreDriverSQLite, "":
		db, err := database.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, repository.NewSQLBackend(db))
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, repository.NewSQLBackend(db))
	case config.StoreDriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisBackend(client), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func migrated(ctx context.Context, backend *repository.SQLBackend) (repository.Backend, error) {
	if err := backend.Migrate(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	return backend, nil
}
