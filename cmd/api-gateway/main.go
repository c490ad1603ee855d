package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/dojoflow/dojoflow-api/api/swagger"
	"github.com/dojoflow/dojoflow-api/internal/belt"
	"github.com/dojoflow/dojoflow-api/internal/handler"
	"github.com/dojoflow/dojoflow-api/internal/middleware"
	"github.com/dojoflow/dojoflow-api/internal/models"
	"github.com/dojoflow/dojoflow-api/internal/repository"
	"github.com/dojoflow/dojoflow-api/internal/service"
	"github.com/dojoflow/dojoflow-api/pkg/cache"
	"github.com/dojoflow/dojoflow-api/pkg/config"
	"github.com/dojoflow/dojoflow-api/pkg/database"
	"github.com/dojoflow/dojoflow-api/pkg/logger"
	corsmiddleware "github.com/dojoflow/dojoflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dojoflow/dojoflow-api/pkg/middleware/requestid"
	"github.com/dojoflow/dojoflow-api/pkg/storage"
)

// @title DojoFlow API
// @version 1.0.0
// @description Attendance admission and belt progression backend for BJJ academies
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	historyRepo := repository.NewBeltHistoryRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	rules := belt.Rules{
		Capacity:        cfg.Checkin.Capacity,
		DuplicateWindow: cfg.Checkin.DuplicateWindow,
	}
	club := belt.ClubConfigFrom(cfg.Club.ClassesPerDegree, cfg.Club.MonthsPerDegree, cfg.Club.AlertThreshold)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "dojoflow-api",
	})
	qrSvc := service.NewQRLinkService(studentRepo, cfg.QR.TokenSecret, cfg.QR.TokenTTL, logr)
	checkinSvc := service.NewCheckinService(studentRepo, attendanceRepo, paymentRepo, qrSvc, rules, club, nil, logr)
	progressionSvc := service.NewProgressionService(studentRepo, attendanceRepo, historyRepo, club, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, nil, logr)
	sessionSvc := service.NewSessionService(sessionRepo, attendanceRepo, nil, logr)
	dashboardSvc := service.NewDashboardService(attendanceRepo, studentRepo, paymentSvc, progressionSvc, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		jobRepo := repository.NewExportJobRepository(db)
		exportSvc = service.NewExportService(attendanceRepo, paymentRepo, jobRepo, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
			Workers:   cfg.Exports.WorkerConcurrency,
		}, nil, logr)
		exportSvc.Start(ctx)
		defer exportSvc.Stop()

		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportSvc.Cleanup()
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	checkinHandler := handler.NewCheckinHandler(checkinSvc, dashboardSvc, metricsSvc)
	progressionHandler := handler.NewProgressionHandler(progressionSvc, dashboardSvc, metricsSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	qrHandler := handler.NewQRHandler(qrSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc))
	staffRead := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	{
		staff.GET("/students", staffRead, studentHandler.List)
		staff.GET("/students/:id", staffRead, studentHandler.Get)
		staff.POST("/students", adminOnly, studentHandler.Create)
		staff.PUT("/students/:id", adminOnly, studentHandler.Update)
		staff.DELETE("/students/:id", adminOnly, studentHandler.Delete)

		staff.POST("/checkins", staffRead, checkinHandler.Checkin)
		staff.GET("/checkins", staffRead, checkinHandler.History)
		staff.POST("/students/:id/qr-link", staffRead, qrHandler.Generate)

		staff.GET("/students/:id/progress", staffRead, progressionHandler.Progress)
		staff.GET("/students/:id/belt-history", staffRead, progressionHandler.History)
		staff.POST("/students/:id/promote", adminOnly, progressionHandler.Promote)
		staff.GET("/progression/ready", staffRead, progressionHandler.Ready)

		staff.GET("/payments", staffRead, paymentHandler.List)
		staff.POST("/payments", adminOnly, paymentHandler.Create)
		staff.POST("/payments/:id/pay", adminOnly, paymentHandler.MarkPaid)
		staff.GET("/students/:id/standing", staffRead, paymentHandler.Standing)
		staff.GET("/payments/delinquency", staffRead, paymentHandler.Delinquency)

		staff.POST("/sessions", adminOnly, sessionHandler.Create)
		staff.GET("/sessions/:id", staffRead, sessionHandler.Get)
		staff.GET("/sessions", staffRead, sessionHandler.ListDay)

		staff.GET("/dashboard", staffRead, dashboardHandler.Summary)
	}

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		staff.POST("/exports", adminOnly, exportHandler.Enqueue)
		staff.GET("/exports/:id", adminOnly, exportHandler.Status)
		// Download links carry their own signature so the token is the auth.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
