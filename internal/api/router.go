package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	// Registers the generated OpenAPI document with swag.
	_ "github.com/storerating/rating-api/docs"
	"github.com/storerating/rating-api/internal/api/handler"
	"github.com/storerating/rating-api/internal/api/middleware"
	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
	"github.com/storerating/rating-api/pkg/logger"
)

// Deps carries everything the router needs to wire the HTTP layer.
type Deps struct {
	Auth    ports.AuthService
	Users   ports.UserService
	Stores  ports.StoreService
	Ratings ports.RatingService

	// Health maps dependency names to readiness checks.
	Health map[string]handler.PingFunc

	JWTSecret string
	Log       zerolog.Logger
	// ExposeErrorDetails adds the cause of 500 responses to the body.
	ExposeErrorDetails bool
	// Metrics mounts the Prometheus middleware and /metrics route.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.ExposeErrorDetails)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.RequestLogger(d.Log))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("storerating"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users)
	storeHandler := handler.NewStoreHandler(d.Stores)
	ratingHandler := handler.NewRatingHandler(d.Ratings)
	healthHandler := handler.NewHealthHandler(d.Health)

	auth := middleware.Auth(d.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/profile", authHandler.Profile, auth)
	api.PUT("/auth/update-password", authHandler.UpdatePassword, auth)

	// --- User routes (admin) ---
	users := api.Group("/users", auth, adminOnly)
	users.GET("", userHandler.List)
	users.GET("/dashboard-stats", userHandler.DashboardStats)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Store routes ---
	api.GET("/stores", storeHandler.List)
	api.GET("/stores/owner", storeHandler.OwnerStores, auth)
	api.GET("/stores/:id", storeHandler.Get)
	api.POST("/stores", storeHandler.Create, auth)
	api.PUT("/stores/:id", storeHandler.Update, auth)
	api.DELETE("/stores/:id", storeHandler.Delete, auth, adminOnly)

	// --- Rating routes ---
	api.POST("/ratings", ratingHandler.Submit, auth)
	api.GET("/ratings/store/:storeId", ratingHandler.StoreRatings)
	api.GET("/ratings/store/:storeId/user", ratingHandler.UserRating, auth)
	api.DELETE("/ratings/:id", ratingHandler.Delete, auth, adminOnly)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- API docs ---
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
