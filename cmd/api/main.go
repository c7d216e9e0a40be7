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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/shaderhub/shaderhub-api/api/swagger"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/handler"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	"github.com/shaderhub/shaderhub-api/internal/router"
	"github.com/shaderhub/shaderhub-api/internal/service"
	"github.com/shaderhub/shaderhub-api/pkg/cache"
	"github.com/shaderhub/shaderhub-api/pkg/config"
	"github.com/shaderhub/shaderhub-api/pkg/database"
	"github.com/shaderhub/shaderhub-api/pkg/jobs"
	"github.com/shaderhub/shaderhub-api/pkg/logger"
	"github.com/shaderhub/shaderhub-api/pkg/ratelimit"
	"github.com/shaderhub/shaderhub-api/pkg/storage"
)

// @title ShaderHub API
// @version 1.0.0
// @description Upload, browse and moderate 3D model assets
// @BasePath /api/v1
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, feed cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "shaderhub:")
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	var pageStore service.FeedCacheStore
	if redisClient != nil {
		pageStore = cacheRepo
	}
	feedCache := service.NewFeedCache(pageStore, metrics, cfg.Feed.CacheTTL, logr.Named("feed_cache"))

	objectRepo := repository.NewObjectRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	tagRepo := repository.NewTagRepository(db)
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	historyRepo := repository.NewSearchHistoryRepository(db)

	files := filestore.NewClient(cfg.FileStorage, logr.Named("filestore"))

	queue := jobs.NewQueue("storage", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr.Named("jobs"),
	})
	service.RegisterStorageJobs(queue, files, objectRepo, metrics, logr)
	queue.Start(ctx)
	defer queue.Stop()

	authSvc := service.NewAuthService(logr, service.AuthConfig{SessionSecret: cfg.Auth.SessionSecret, Issuer: cfg.Auth.Issuer})
	feedSvc := service.NewFeedService(objectRepo, feedCache, validate, logr, service.FeedConfig{
		DefaultLimit: cfg.Feed.DefaultLimit,
		MaxLimit:     cfg.Feed.MaxLimit,
	})
	objectSvc := service.NewObjectService(service.ObjectServiceDeps{
		Objects:      objectRepo,
		Favourites:   collectionRepo,
		Files:        files,
		Signer:       storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL),
		Queue:        queue,
		Feed:         feedSvc,
		Metrics:      metrics,
		Validator:    validate,
		Logger:       logr,
		DownloadBase: cfg.APIPrefix,
	})
	requestSvc := service.NewRequestService(requestRepo, objectRepo, feedSvc, metrics, validate, logr,
		service.RequestConfig{PrivateSetsPublic: cfg.Requests.PrivateSetsPublic})
	librarySvc := service.NewLibraryService(collectionRepo, objectRepo, validate, logr)
	uploadSvc := service.NewUploadService(service.UploadServiceDeps{
		Catalog:   tagRepo,
		Objects:   objectRepo,
		Files:     files,
		Queue:     queue,
		Feed:      feedSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.UploadConfig{
			MaxArchiveBytes:   cfg.Upload.MaxArchiveBytes,
			MaxThumbnailBytes: cfg.Upload.MaxThumbnailBytes,
		},
	})
	profileSvc := service.NewProfileService(userRepo, files, metrics, validate, logr, cfg.Upload.MaxThumbnailBytes)
	historySvc := service.NewSearchHistoryService(historyRepo, validate, cfg.SearchHistory.Size)
	webhookSvc, err := service.NewWebhookService(userRepo, cfg.Auth.WebhookSecret, validate, logr)
	if err != nil {
		return fmt.Errorf("init webhook verifier: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	dependents := map[string]handler.Pinger{
		"database":     handler.PingerFunc(db.PingContext),
		"file_storage": files,
	}
	if redisClient != nil {
		dependents["redis"] = cacheRepo
	}

	engine := router.New(router.Deps{
		Config:  cfg,
		Logger:  logr,
		Auth:    authSvc,
		Metrics: metrics,
		Limiter: limiter,
		Handlers: router.Handlers{
			Feed:     handler.NewFeedHandler(feedSvc, objectSvc),
			Objects:  handler.NewObjectHandler(objectSvc, requestSvc),
			Library:  handler.NewLibraryHandler(librarySvc),
			Upload:   handler.NewUploadHandler(uploadSvc, cfg.Upload.MaxArchiveBytes+cfg.Upload.MaxThumbnailBytes+(1<<20)),
			Profiles: handler.NewProfileHandler(profileSvc),
			Search:   handler.NewSearchHandler(historySvc),
			Requests: handler.NewRequestHandler(requestSvc),
			Webhooks: handler.NewWebhookHandler(webhookSvc),
			Metrics:  handler.NewMetricsHandler(metrics, dependents, logr),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, srv, logr)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, logr *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr))
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
