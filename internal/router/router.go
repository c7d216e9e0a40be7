// Package router assembles the API tier's gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/handler"
	"github.com/shaderhub/shaderhub-api/internal/middleware"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/service"
	"github.com/shaderhub/shaderhub-api/pkg/config"
	"github.com/shaderhub/shaderhub-api/pkg/logger"
	corsmiddleware "github.com/shaderhub/shaderhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/shaderhub/shaderhub-api/pkg/middleware/requestid"
	"github.com/shaderhub/shaderhub-api/pkg/ratelimit"
)

// Handlers groups every HTTP handler mounted by New.
type Handlers struct {
	Feed     *handler.FeedHandler
	Objects  *handler.ObjectHandler
	Library  *handler.LibraryHandler
	Upload   *handler.UploadHandler
	Profiles *handler.ProfileHandler
	Search   *handler.SearchHandler
	Requests *handler.RequestHandler
	Webhooks *handler.WebhookHandler
	Metrics  *handler.MetricsHandler
}

// Deps carries the cross cutting pieces the routes need.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Metrics  *service.MetricsService
	Limiter  *ratelimit.KeyedRateLimiter
	Handlers Handlers
}

// New builds the engine with the global middleware chain and all routes.
func New(d Deps) *gin.Engine {
	cfg := d.Config
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.WithResponseMeta())

	h := d.Handlers
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limited := ratelimit.Middleware(d.Limiter, d.Logger)
	r.POST("/api/webhooks/auth", limited, h.Webhooks.Auth)

	session := middleware.Session(d.Auth)
	optional := middleware.OptionalSession(d.Auth)
	admin := middleware.RequireRole(adminRole(cfg))

	api := r.Group(cfg.APIPrefix)

	objects := api.Group("/objects")
	objects.GET("/initial", h.Feed.Initial)
	objects.GET("", h.Feed.Infinite)
	objects.GET("/:id", optional, h.Objects.Detail)
	objects.DELETE("/:id", session, h.Objects.Delete)
	objects.GET("/:id/download-url", optional, h.Objects.DownloadURL)
	objects.GET("/:id/archive", h.Objects.Archive)
	objects.POST("/:id/visibility", session, h.Objects.RequestVisibility)

	api.POST("/thumbnails", h.Feed.Thumbnails)

	library := api.Group("/library", session)
	library.GET("", h.Library.Library)
	library.GET("/:objectId/favourite", h.Library.Favourite)
	library.POST("/:objectId/favourite", h.Library.ToggleFavourite)
	library.GET("/:objectId/collections", h.Library.Collections)
	library.PATCH("/:objectId/collections", h.Library.AddToCollection)
	library.POST("/:objectId/collections", h.Library.CreateCollection)

	upload := api.Group("/upload", session)
	upload.GET("/catalog", h.Upload.Catalog)
	upload.POST("/objects", limited, h.Upload.Upload)

	profiles := api.Group("/profiles")
	profiles.PUT("/me", session, h.Profiles.UpdateCredentials)
	profiles.POST("/me/picture", session, limited, h.Profiles.UploadPicture)
	profiles.GET("/:userId", h.Profiles.Get)

	search := api.Group("/search", session)
	search.GET("/history", h.Search.History)
	search.POST("/history", h.Search.Add)

	requests := api.Group("/requests", session, admin)
	requests.GET("", h.Requests.Pending)
	requests.GET("/export", middleware.Audit(d.Logger, "requests.export"), h.Requests.Export)
	requests.PATCH("/:id", middleware.Audit(d.Logger, "requests.set_status"), h.Requests.SetStatus)

	return r
}

func adminRole(cfg *config.Config) string {
	if cfg.Auth.AdminRole != "" {
		return cfg.Auth.AdminRole
	}
	return models.RoleAdmin
}
