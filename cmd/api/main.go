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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/kitcycle/kitcycle-api/api/swagger"
	"github.com/kitcycle/kitcycle-api/internal/handler"
	"github.com/kitcycle/kitcycle-api/internal/middleware"
	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/internal/repository"
	"github.com/kitcycle/kitcycle-api/internal/service"
	"github.com/kitcycle/kitcycle-api/pkg/cache"
	"github.com/kitcycle/kitcycle-api/pkg/config"
	"github.com/kitcycle/kitcycle-api/pkg/database"
	"github.com/kitcycle/kitcycle-api/pkg/logger"
	"github.com/kitcycle/kitcycle-api/pkg/mailer"
	corsmiddleware "github.com/kitcycle/kitcycle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kitcycle/kitcycle-api/pkg/middleware/requestid"
	"github.com/kitcycle/kitcycle-api/pkg/storage"
)

// @title KitCycle API
// @version 1.0.0
// @description School-uniform exchange platform: school directory, submissions, and marketplace
// @BasePath /api
// @schemes http https

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	listingRepo := repository.NewListingRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	exportRepo := repository.NewExportRepository(db)

	metricsSvc := service.NewMetricsService()
	metricsSvc.RegisterDBStats(db)

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer redisClient.Close()
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr)

	// Outbound email.
	var mail mailer.Mailer
	if cfg.Mail.Provider == "sendgrid" && cfg.Mail.SendgridKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	} else {
		mail = mailer.NewConsoleMailer(logr)
	}

	notificationSvc, err := service.NewNotificationService(mail, emailLogRepo, submissionRepo, approvalRepo, metricsSvc, service.NotificationConfig{
		AdminName:  "KitCycle Admin",
		AdminEmail: cfg.Mail.AdminEmail,
		Workers:    cfg.Mail.WorkerConcurrency,
		Retries:    cfg.Mail.WorkerRetries,
	}, logr)
	if err != nil {
		logr.Fatal("failed to init notification service", zap.Error(err))
	}
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "kitcycle-api",
	})

	schoolSvc := service.NewSchoolService(schoolRepo, cacheSvc, service.SchoolCacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.DirectoryTTL,
	}, logr)

	submissionSvc := service.NewSubmissionService(submissionRepo, schoolSvc, userRepo, userRepo, notificationSvc, validate, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, userRepo, schoolSvc, userRepo, notificationSvc, validate, cfg.Submissions.MaxCombinedSchools, logr)
	listingSvc := service.NewListingService(listingRepo, userRepo, schoolSvc, userRepo, notificationSvc, cacheSvc, validate, service.ListingConfig{
		MaxActiveListings: cfg.Marketplace.MaxActiveListingsPerUser,
		CacheTTL:          cfg.Cache.ListingsTTL,
	}, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(exportRepo, submissionRepo, schoolRepo, listingRepo, store, signer, userRepo, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			Workers:         cfg.Exports.WorkerConcurrency,
			Retries:         cfg.Exports.WorkerRetries,
		}, logr)
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	listingHandler := handler.NewListingHandler(listingSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	requireAuth := middleware.JWT(authSvc)
	requireAdmin := middleware.RequireAdmin()

	r.GET("/metrics", requireAuth, requireAdmin, gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}
		api.GET("/users/me", requireAuth, authHandler.Me)

		api.GET("/schools", schoolHandler.List)
		api.GET("/schools/:id", schoolHandler.Get)
		api.GET("/counties", schoolHandler.Locations)

		submissions := api.Group("/school-submissions", requireAuth)
		{
			submissions.POST("", submissionHandler.Create)
			submissions.GET("", submissionHandler.List)
			submissions.GET("/:id", submissionHandler.Get)
			submissions.PUT("", requireAdmin, middleware.Audit(userRepo, models.AuditActionSubmissionReview, "school_submissions"), submissionHandler.Review)
		}

		approvals := api.Group("/school-approval-requests", requireAuth)
		{
			approvals.POST("", approvalHandler.Create)
			approvals.GET("", approvalHandler.List)
			approvals.GET("/:id", approvalHandler.Get)
			approvals.PUT("", requireAdmin, middleware.Audit(userRepo, models.AuditActionApprovalReview, "school_approval_requests"), approvalHandler.Review)
		}

		listings := api.Group("/listings", requireAuth)
		{
			listings.POST("", listingHandler.Create)
			listings.GET("", listingHandler.List)
			listings.GET("/:id", listingHandler.Get)
			listings.PUT("/:id", listingHandler.Update)
			listings.POST("/:id/requests", listingHandler.RequestItem)
		}
		api.PUT("/listing-requests/:id", requireAuth, listingHandler.Respond)

		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			exports := api.Group("/admin/exports")
			{
				// Download links carry their own HMAC token and expiry.
				exports.GET("/download", exportHandler.Download)
				exports.GET("/download/:token", exportHandler.Download)
				exports.POST("", requireAuth, requireAdmin, middleware.Audit(userRepo, models.AuditActionExportCreate, "export_jobs"), exportHandler.Create)
				exports.GET("/:id", requireAuth, requireAdmin, exportHandler.Status)
			}
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
