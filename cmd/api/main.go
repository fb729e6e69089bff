package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wanderlust/internal/auth"
	"wanderlust/internal/config"
	"wanderlust/internal/database"
	"wanderlust/internal/database/migration"
	"wanderlust/internal/events"
	"wanderlust/internal/geocoding"
	handlers "wanderlust/internal/http/handler"
	"wanderlust/internal/http/middleware"
	"wanderlust/internal/imaging"
	"wanderlust/internal/logging"
	"wanderlust/internal/model"
	"wanderlust/internal/otel"
	"wanderlust/internal/repository"
	"wanderlust/internal/repository/cache"
	"wanderlust/internal/repository/mongodb"
	"wanderlust/internal/repository/postgres"
	"wanderlust/internal/service"
	"wanderlust/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// stores bundles the selected persistence backend.
type stores struct {
	listings repository.ListingRepository
	reviews  repository.ReviewRepository
	pinger   database.Pinger
	close    func()
}

// @title Wanderlust Listings API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	log := logging.NewStdout(cfg.LogLevel, loc)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	verifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	listingCache, closeCache := openCache(ctx, cfg.Redis, log)
	defer closeCache()

	publisher, closePublisher := openPublisher(cfg.NATS, log)
	defer closePublisher()

	images, err := openImages(ctx, cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.DefaultRegisterer
	geocoder := geocoding.NewMapbox(cfg.Geocoding, geocoding.WithMetrics(reg))
	if cfg.Geocoding.AccessToken == "" {
		log.Warn("geocoding_disabled", zap.String("reason", "MAP_TOKEN is empty"))
	}

	var fallback *model.GeoPoint
	if cfg.Geocoding.FallbackEnabled {
		p, err := model.NewGeoPoint(cfg.Geocoding.FallbackLon, cfg.Geocoding.FallbackLat)
		if err != nil {
			return fmt.Errorf("geocode fallback: %w", err)
		}
		fallback = &p
	}

	deps := service.ListingDeps{
		Listings: st.listings,
		Geocoder: geocoder,
		Cache:    listingCache,
		Events:   publisher,
		Logger:   log.With(zap.String("component", "listings")),
		Fallback: fallback,
	}
	if images != nil {
		deps.Images = images
	}
	listingSvc := service.NewListingService(deps)
	reviewSvc := service.NewReviewService(st.listings, st.reviews, listingCache, log.With(zap.String("component", "reviews")))

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, handlers.Deps{
		Store:         st.pinger,
		Listings:      listingSvc,
		Reviews:       reviewSvc,
		Verifier:      verifier,
		SessionCookie: cfg.Auth.SessionCookie,
	})

	app.Get("/swagger/*", handlers.SwaggerDocs(cfg.AppHost))

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting", zap.String("addr", ":"+cfg.Port), zap.String("store", cfg.StoreDriver))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(sctx)
}

func openStores(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &stores{
			listings: postgres.NewListingPostgres(db),
			reviews:  postgres.NewReviewPostgres(db),
			pinger:   db,
			close:    func() { db.Close() },
		}, nil

	case config.StoreMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return &stores{
			listings: mongodb.NewListingMongo(ctx, db, log),
			reviews:  mongodb.NewReviewMongo(db, log),
			pinger:   database.MongoPinger{Client: client},
			close: func() {
				dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = client.Disconnect(dctx)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// openCache returns the Redis cache, or a no-op cache when Redis is unset or unreachable.
func openCache(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (cache.ListingCache, func()) {
	if cfg.Addr == "" {
		return cache.Noop{}, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	c, err := cache.NewRedisListingCache(ctx, client, time.Duration(cfg.TTLSec)*time.Second)
	if err != nil {
		log.Warn("cache_disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return cache.Noop{}, func() {}
	}
	return c, func() { _ = client.Close() }
}

// openPublisher returns the NATS publisher, or a no-op publisher when NATS is unset or unreachable.
func openPublisher(cfg config.NATSConfig, log *zap.Logger) (events.Publisher, func()) {
	if cfg.URL == "" {
		return events.Noop{}, func() {}
	}
	p, err := events.NewNATSPublisher(cfg.URL, cfg.SubjectPrefix)
	if err != nil {
		log.Warn("events_disabled", zap.String("url", cfg.URL), zap.Error(err))
		return events.Noop{}, func() {}
	}
	return p, p.Close
}

// openImages returns nil when no image store is configured; uploads then become warnings.
func openImages(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*imaging.Manager, error) {
	var (
		store storage.Storage
		err   error
	)
	switch cfg.ImageStore {
	case config.ImageStoreCloudinary:
		if cfg.Cloudinary.CloudName == "" {
			log.Warn("image_uploads_disabled", zap.String("reason", "CLOUDINARY_CLOUD_NAME is empty"))
			return nil, nil
		}
		store, err = storage.NewCloudinary(cfg.Cloudinary)
	case config.ImageStoreMinIO:
		if cfg.MinIO.Endpoint == "" {
			log.Warn("image_uploads_disabled", zap.String("reason", "MINIO_ENDPOINT is empty"))
			return nil, nil
		}
		store, err = storage.NewMinIO(ctx, cfg.MinIO)
	default:
		return nil, errors.New("unknown IMAGE_STORE " + cfg.ImageStore)
	}
	if err != nil {
		return nil, fmt.Errorf("init image store: %w", err)
	}
	return imaging.NewManager(store), nil
}
