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
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/filestorage"
	"github.com/shaderhub/shaderhub-api/pkg/config"
	"github.com/shaderhub/shaderhub-api/pkg/logger"
	reqidmiddleware "github.com/shaderhub/shaderhub-api/pkg/middleware/requestid"
	"github.com/shaderhub/shaderhub-api/pkg/storage"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("init blob storage", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.MaxMultipartMemory = 32 << 20
	filestorage.NewServer(blobs, logr, cfg.Storage.MaxFormSize).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Storage.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("file storage starting", zap.String("addr", srv.Addr), zap.String("backend", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("file storage failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
