package main

import (
	"context"
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

	_ "github.com/learnsphere/academy-api/api/swagger"
	"github.com/learnsphere/academy-api/pkg/cache"
	"github.com/learnsphere/academy-api/pkg/config"
	"github.com/learnsphere/academy-api/pkg/database"
	"github.com/learnsphere/academy-api/pkg/jobs"
	"github.com/learnsphere/academy-api/pkg/logger"
	corsmiddleware "github.com/learnsphere/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/learnsphere/academy-api/pkg/middleware/requestid"
	"github.com/learnsphere/academy-api/pkg/storage"

	"github.com/learnsphere/academy-api/internal/handler"
	ginmiddleware "github.com/learnsphere/academy-api/internal/middleware"
	"github.com/learnsphere/academy-api/internal/repository"
	"github.com/learnsphere/academy-api/internal/router"
	"github.com/learnsphere/academy-api/internal/service"
)

// @title LearnSphere Academy API
// @version 1.0.0
// @description Course catalog, enrollment and billing API
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	newsletterRepo := repository.NewNewsletterRepository(db)
	contactRepo := repository.NewContactRepository(db)
	seoRepo := repository.NewSEORepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Observability.
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	// Core services.
	authService := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, auditRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, cacheRepo, validate, logr, service.CatalogCacheConfig{
		Enabled: cfg.Catalog.CacheEnabled && redisClient != nil,
		TTL:     cfg.Catalog.CacheTTL,
	})
	batchService := service.NewBatchService(batchRepo, courseRepo, cacheRepo, validate, logr)
	billingService := service.NewBillingService(invoiceRepo, promoRepo, enrollmentRepo, batchRepo, courseRepo, auditRepo, validate, logr, service.BillingConfig{
		InvoiceDueDays: cfg.Billing.InvoiceDueDays,
	})
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, batchRepo, courseRepo, billingService, auditRepo, validate, logr)
	promoService := service.NewPromoService(promoRepo, validate, logr)
	blogService := service.NewBlogService(blogRepo, validate, logr)
	reviewService := service.NewReviewService(reviewRepo, enrollmentRepo, validate, logr)
	newsletterService := service.NewNewsletterService(newsletterRepo, nil, validate, logr)
	contactService := service.NewContactService(contactRepo, validate, logr)
	seoService := service.NewSEOService(seoRepo, validate, logr)
	dashboardService := service.NewDashboardService(dashboardRepo, cacheService, metricsService, logr, service.DashboardConfig{
		Enabled:  cfg.Dashboard.Enabled,
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	// Exports.
	fileStore, err := storage.NewLocalStorage(cfg.Billing.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Billing.SignedURLSecret, cfg.Billing.SignedURLTTL)
	exportService := service.NewExportService(invoiceRepo, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Billing.SignedURLTTL,
	}, logr, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Newsletter issues dispatch through a worker queue so large
	// subscriber lists never block the request path.
	newsletterQueue := jobs.NewQueue("newsletter", func(ctx context.Context, job jobs.Job) error {
		issueID, _ := job.Payload.(string)
		err := newsletterService.Dispatch(ctx, issueID)
		metricsService.RecordJob("newsletter", err == nil)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Newsletter.WorkerConcurrency,
		MaxRetries: cfg.Billing.WorkerRetries,
		Logger:     logr,
	})
	if cfg.Newsletter.Enabled {
		newsletterQueue.Start(ctx)
		defer newsletterQueue.Stop()
		newsletterService.SetDispatcher(newsletterQueue)
	}

	// Expired export files are purged in the background.
	if cfg.Billing.ExportsEnabled {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed, err := exportService.Cleanup(0); err != nil {
						logr.Sugar().Warnw("export cleanup failed", "error", err)
					} else if len(removed) > 0 {
						logr.Sugar().Infow("expired exports removed", "count", len(removed))
					}
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(ginmiddleware.Metrics(metricsService))

	router.Register(r, cfg.APIPrefix, authService, auditRepo, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Users:      handler.NewUserHandler(userService),
		Courses:    handler.NewCourseHandler(courseService),
		Batches:    handler.NewBatchHandler(batchService),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService),
		Invoices:   handler.NewInvoiceHandler(billingService),
		Promos:     handler.NewPromoHandler(promoService),
		Blog:       handler.NewBlogHandler(blogService),
		Reviews:    handler.NewReviewHandler(reviewService),
		Newsletter: handler.NewNewsletterHandler(newsletterService),
		Contact:    handler.NewContactHandler(contactService),
		SEO:        handler.NewSEOHandler(seoService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Exports:    handler.NewExportHandler(exportService),
		Metrics:    handler.NewMetricsHandler(metricsService),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("redis close failed", "error", err)
	}
}
