package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-fees-api/api/swagger"
	"github.com/noah-isme/sma-fees-api/internal/handler"
	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	"github.com/noah-isme/sma-fees-api/internal/service"
	"github.com/noah-isme/sma-fees-api/pkg/cache"
	"github.com/noah-isme/sma-fees-api/pkg/config"
	"github.com/noah-isme/sma-fees-api/pkg/database"
	"github.com/noah-isme/sma-fees-api/pkg/jobs"
	"github.com/noah-isme/sma-fees-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-fees-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-fees-api/pkg/receipt"
	"github.com/noah-isme/sma-fees-api/pkg/storage"
)

// @title School Fees API
// @version 1.0.0
// @description Fee payment counter: student scanning, payment queue, recording and receipts
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Roster.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Roster.CacheTTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	structureRepo := repository.NewFeeStructureRepository(db)
	termRepo := repository.NewTermRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	resolverSvc := service.NewResolverService(studentRepo, feeRepo, cacheSvc, metricsSvc, logr)
	queueSvc := service.NewQueueService(feeRepo, cfg.Queue.MaxEntriesPerTill, metricsSvc, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, feeRepo, userRepo, metricsSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(structureRepo, feeRepo, studentRepo, termRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(paymentRepo, nil, nil, logr)

	renderer, err := receipt.NewRenderer()
	if err != nil {
		logr.Sugar().Fatalw("failed to build receipt renderer", "error", err)
	}

	var store *storage.LocalStorage
	var signer *storage.SignedURLSigner
	if cfg.Receipts.ArchiveEnabled {
		store, err = storage.NewLocalStorage(cfg.Receipts.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init receipt storage", "error", err)
		}
		signer = storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	}

	receiptSvc := service.NewReceiptService(paymentRepo, feeRepo, studentRepo, termRepo, settingsRepo, userRepo, renderer, store, signer, metricsSvc, cfg.Receipts.Currency, logr)

	if cfg.Receipts.ArchiveEnabled {
		archiveQueue := jobs.NewQueue("receipt-archive", receiptSvc.HandleArchiveJob, jobs.QueueConfig{
			Workers:    cfg.Receipts.WorkerConcurrency,
			MaxRetries: cfg.Receipts.WorkerRetries,
			Logger:     logr,
		})
		archiveQueue.Start(context.Background())
		defer archiveQueue.Stop()
		receiptSvc.AttachArchiveQueue(archiveQueue)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	scanHandler := handler.NewScanHandler(resolverSvc, queueSvc)
	queueHandler := handler.NewQueueHandler(queueSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, queueSvc, receiptSvc, exportSvc)
	feeHandler := handler.NewFeeHandler(assignmentSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Receipt downloads are authorised by signed token, not session.
	api.GET("/receipts/download", receiptHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/scan", scanHandler.Resolve)

		queue := protected.Group("/queue")
		{
			queue.GET("", queueHandler.Snapshot)
			queue.POST("/:studentId/select", queueHandler.Select)
			queue.POST("/advance", queueHandler.Advance)
			queue.POST("/release", queueHandler.Release)
			queue.DELETE("/completed", queueHandler.ClearCompleted)
			queue.DELETE("/:studentId", queueHandler.Remove)
		}

		payments := protected.Group("/payments")
		{
			payments.POST("", paymentHandler.Record)
			payments.GET("", paymentHandler.List)
			if cfg.Exports.Enabled {
				payments.GET("/export", paymentHandler.Export)
			}
			payments.GET("/:id", paymentHandler.Get)
			payments.POST("/:id/void", middleware.RequireRoles(models.RoleAdmin), paymentHandler.Void)
			payments.GET("/:id/receipt", receiptHandler.HTML)
			payments.GET("/:id/receipt.pdf", receiptHandler.PDF)
			payments.GET("/:id/receipt/link", receiptHandler.SignedURL)
		}

		fees := protected.Group("/fees")
		{
			fees.GET("/structures", feeHandler.ListStructures)
			fees.POST("/assign", middleware.RequireRoles(models.RoleAdmin), feeHandler.Assign)
		}

		protected.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
