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

	_ "github.com/noah-isme/training-api/api/swagger"
	"github.com/noah-isme/training-api/internal/handler"
	"github.com/noah-isme/training-api/internal/middleware"
	"github.com/noah-isme/training-api/internal/repository"
	"github.com/noah-isme/training-api/internal/router"
	"github.com/noah-isme/training-api/internal/service"
	"github.com/noah-isme/training-api/migrations"
	"github.com/noah-isme/training-api/pkg/cache"
	"github.com/noah-isme/training-api/pkg/config"
	"github.com/noah-isme/training-api/pkg/database"
	"github.com/noah-isme/training-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/training-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/training-api/pkg/middleware/requestid"
)

// @title Training API
// @version 1.0.0
// @description Training management backend for instructors, trainees and super-admins
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(context.Background(), db.DB); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	revoker, closeRevoker, err := newRevoker(cfg, logr)
	if err != nil {
		return err
	}
	defer closeRevoker()

	validate := validator.New()
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	users := repository.NewUserRepository(db)
	modules := repository.NewModuleRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	messages := repository.NewMessageRepository(db)

	auditWriter := service.NewAuditWriter(users, logr, service.AuditWriterConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: 3,
	})
	auditWriter.Start(context.Background())
	defer auditWriter.Stop()

	authSvc := service.NewAuthService(users, revoker, validate, logr, metrics, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(users, authSvc, validate, logr)
	moduleSvc := service.NewModuleService(modules, users, users, validate, logr)
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceParams{
		Repo:      assignments,
		Users:     users,
		Modules:   modules,
		Audit:     users,
		Validator: validate,
		Logger:    logr,
		Metrics:   metrics,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Users:       users,
		Modules:     modules,
		Assignments: assignments,
		Messages:    messages,
		Logger:      logr,
		Metrics:     metrics,
		Config:      service.DashboardServiceConfig{RecentUsersLimit: cfg.Dashboard.RecentUsersLimit},
	})
	traineeSvc := service.NewTraineeService(users, dashboardSvc, authSvc, logr)
	messageSvc := service.NewMessageService(messages, users, validate, logr, metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, db, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction || cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r.Group(cfg.APIPrefix), router.Deps{
		Tokens: authSvc,
		Audit:  auditWriter,
		Logger: logr,
	}, router.Routes(router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Profile:     handler.NewProfileHandler(userSvc),
		Modules:     handler.NewModuleHandler(moduleSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Trainees:    handler.NewTraineeHandler(traineeSvc),
		Messages:    handler.NewMessageHandler(messageSvc),
		Users:       handler.NewUserHandler(userSvc),
	}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logr.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// revocationStore is what the auth service needs from a revocation backend.
type revocationStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error
	RevokedBefore(ctx context.Context, userID string) (time.Time, error)
}

func newRevoker(cfg *config.Config, logr *zap.Logger) (revocationStore, func(), error) {
	if cfg.Revocation.Store == config.RevocationStoreMemory {
		logr.Warn("token revocation kept in memory; revocations are lost on restart")
		return repository.NewMemoryRevocationRepository(), func() {}, nil
	}

	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return repository.NewRedisRevocationRepository(client, logr), func() { _ = client.Close() }, nil
}
