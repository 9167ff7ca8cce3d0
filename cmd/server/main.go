// @title                       Store Rating API
// @version                     1.0
// @description                 Users rate stores 1-5; store owners and administrators manage the catalogue.
// @host                        localhost:8080
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/storerating/rating-api/internal/api"
	"github.com/storerating/rating-api/internal/api/handler"
	"github.com/storerating/rating-api/internal/core/ports"
	"github.com/storerating/rating-api/internal/core/service"
	mongodb "github.com/storerating/rating-api/internal/infrastructure/db/mongo"
	"github.com/storerating/rating-api/internal/infrastructure/db/postgres"
	rediscache "github.com/storerating/rating-api/internal/infrastructure/db/redis"
	"github.com/storerating/rating-api/internal/pkg/config"
	"github.com/storerating/rating-api/pkg/logger"
)

// storage bundles the repositories of one driver with its lifecycle hooks.
type storage struct {
	tx      ports.TxManager
	users   ports.UserRepository
	stores  ports.StoreRepository
	ratings ports.RatingRepository
	ping    handler.PingFunc
	close   func(ctx context.Context)
}

func main() {
	// A missing .env is fine; the environment is authoritative.
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "rating-api",
	})
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("could not read .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("storage init failed")
	}
	log.Info().Str("driver", cfg.StorageDriver).Msg("storage ready")

	health := map[string]handler.PingFunc{cfg.StorageDriver: store.ping}

	var cache ports.StatsCache = service.NopStatsCache{}
	closeRedis := func() {}
	if cfg.Redis.Enabled {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			// The cache is optional; run without it rather than refuse to start.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, dashboard cache disabled")
		} else {
			cache = rediscache.NewStatsCache(rdb, cfg.Redis.StatsTTL)
			health["redis"] = rediscache.Ping(rdb)
			closeRedis = func() { _ = rdb.Close() }
		}
	}

	authService := service.NewAuthService(store.users, cache, cfg.JWTSecret, cfg.JWTTTL, logger.Component("auth"))
	userService := service.NewUserService(store.tx, store.users, store.stores, store.ratings, cache, logger.Component("users"))
	storeService := service.NewStoreService(store.tx, store.users, store.stores, store.ratings, cache, logger.Component("stores"))
	ratingService := service.NewRatingService(store.tx, store.stores, store.ratings, cache, logger.Component("ratings"))

	created, err := userService.EnsureAdmin(ctx, ports.AdminSeed{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Address:  cfg.Admin.Address,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}
	if created {
		log.Info().Str("email", cfg.Admin.Email).Msg("default admin created")
	}

	e := api.NewRouter(api.Deps{
		Auth:               authService,
		Users:              userService,
		Stores:             storeService,
		Ratings:            ratingService,
		Health:             health,
		JWTSecret:          cfg.JWTSecret,
		Log:                logger.Component("http"),
		ExposeErrorDetails: !cfg.IsProduction(),
		Metrics:            true,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	closeRedis()
	store.close(shutdownCtx)

	log.Info().Msg("server exited")
}

// openStorage connects the configured driver and prepares its schema.
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &storage{
			tx:      mongodb.NewTxManager(client),
			users:   mongodb.NewUserRepository(db),
			stores:  mongodb.NewStoreRepository(db),
			ratings: mongodb.NewRatingRepository(db),
			ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:   func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil

	default:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			tx:      postgres.NewTxManager(pool),
			users:   postgres.NewUserRepository(pool),
			stores:  postgres.NewStoreRepository(pool),
			ratings: postgres.NewRatingRepository(pool),
			ping:    pool.Ping,
			close:   func(context.Context) { pool.Close() },
		}, nil
	}
}
