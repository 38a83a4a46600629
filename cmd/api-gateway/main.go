package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/class-treasury-api/api/swagger"
	"github.com/noah-isme/class-treasury-api/internal/handler"
	"github.com/noah-isme/class-treasury-api/internal/middleware"
	"github.com/noah-isme/class-treasury-api/internal/models"
	"github.com/noah-isme/class-treasury-api/internal/repository"
	"github.com/noah-isme/class-treasury-api/internal/service"
	"github.com/noah-isme/class-treasury-api/pkg/cache"
	"github.com/noah-isme/class-treasury-api/pkg/config"
	"github.com/noah-isme/class-treasury-api/pkg/database"
	"github.com/noah-isme/class-treasury-api/pkg/jobs"
	"github.com/noah-isme/class-treasury-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-treasury-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-treasury-api/pkg/middleware/requestid"
	"github.com/noah-isme/class-treasury-api/pkg/storage"
)

// @title Class Treasury API
// @version 0.1.0
// @description Bookkeeping service for a class treasurer
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheStore service.CacheStore
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheStore = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheStore != nil)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	valueSetRepo := repository.NewValueSetRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "class-treasury-api",
	})
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	collectionSvc := service.NewCollectionService(collectionRepo, paymentRepo, valueSetRepo, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, collectionRepo, studentRepo, historyRepo, metricsSvc, nil, logr)
	valueSetSvc := service.NewValueSetService(valueSetRepo, nil, logr)
	historySvc := service.NewHistoryService(historyRepo, cfg.History.MaxPageSize, logr)
	remittanceSvc := service.NewRemittanceService(collectionRepo, nil, logr)
	dashboardSvc := service.NewDashboardService(collectionRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exportJobSvc *service.ExportJobService
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(service.ExportServiceParams{
			Collections: collectionRepo,
			Projections: paymentSvc,
			History:     historyRepo,
			Funds:       dashboardSvc,
			Storage:     fileStore,
			Signer:      signer,
			Logger:      logr,
			Config: service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Exports.SignedURLTTL,
			},
		})
		worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		exportJobSvc = service.NewExportJobService(exportJobRepo, queue, exportSvc, logr, service.ExportJobServiceConfig{
			ResultTTL:  cfg.Exports.SignedURLTTL,
			MaxRetries: cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	collectionHandler := handler.NewCollectionHandler(collectionSvc, remittanceSvc, dashboardSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, dashboardSvc)
	valueSetHandler := handler.NewValueSetHandler(valueSetSvc)
	historyHandler := handler.NewHistoryHandler(historySvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

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

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/students", studentHandler.List)
	authed.GET("/students/:id", studentHandler.Get)
	authed.GET("/collections", collectionHandler.List)
	authed.GET("/collections/:id", collectionHandler.Get)
	authed.GET("/collections/:id/payments", paymentHandler.Roster)
	authed.GET("/collections/:id/payments/:studentId/due", paymentHandler.AmountDue)
	authed.GET("/collections/:id/breakdown", paymentHandler.Breakdown)
	authed.GET("/value-sets", valueSetHandler.List)
	authed.GET("/value-sets/:id", valueSetHandler.Get)
	authed.GET("/history", historyHandler.List)
	if cfg.Dashboard.Enabled {
		authed.GET("/dashboard/funds", dashboardHandler.Funds)
	}

	treasurer := authed.Group("")
	treasurer.Use(middleware.RequireRoles(models.RoleTreasurer))
	treasurer.POST("/students", studentHandler.Create)
	treasurer.PUT("/students/:id", studentHandler.Update)
	treasurer.DELETE("/students/:id", studentHandler.Delete)

	treasurer.POST("/collections", collectionHandler.Create)
	treasurer.PUT("/collections/:id", collectionHandler.Update)
	treasurer.DELETE("/collections/:id", collectionHandler.Delete)
	treasurer.POST("/collections/:id/fields/:fieldId/duplicate", collectionHandler.DuplicateField)
	treasurer.POST("/collections/:id/fields/:fieldId/value-set", collectionHandler.LinkValueSet)
	treasurer.DELETE("/collections/:id/fields/:fieldId/value-set", collectionHandler.UnlinkValueSet)
	treasurer.POST("/collections/:id/fields/:fieldId/options/:optionId/sub-fields", collectionHandler.AddSubFieldFromValueSet)
	treasurer.POST("/collections/:id/remit", collectionHandler.Remit)
	treasurer.POST("/collections/:id/archive", collectionHandler.Archive)
	treasurer.POST("/collections/:id/unarchive", collectionHandler.Unarchive)

	treasurer.POST("/collections/:id/payments", paymentHandler.Record)
	treasurer.POST("/collections/:id/payments/mark-all-paid", paymentHandler.MarkAllPaid)
	treasurer.POST("/collections/:id/payments/mark-all-unpaid", paymentHandler.MarkAllUnpaid)
	treasurer.POST("/payments/copy", paymentHandler.Copy)

	treasurer.POST("/value-sets", valueSetHandler.Create)
	treasurer.PUT("/value-sets/:id", valueSetHandler.Update)
	treasurer.DELETE("/value-sets/:id", valueSetHandler.Delete)

	if exportJobSvc != nil {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		authed.POST("/exports", exportHandler.Create)
		authed.GET("/exports/:id", exportHandler.Status)
		// The signed token carries its own authorization.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
