package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placemark/internal/adapters/geoip"
	"github.com/samirrijal/placemark/internal/adapters/http"
	"github.com/samirrijal/placemark/internal/adapters/kvstore"
	"github.com/samirrijal/placemark/internal/adapters/memory"
	natsadapter "github.com/samirrijal/placemark/internal/adapters/nats"
	"github.com/samirrijal/placemark/internal/adapters/naver"
	"github.com/samirrijal/placemark/internal/adapters/postgres"
	"github.com/samirrijal/placemark/internal/adapters/valkey"
	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/core/usecases"
	"github.com/samirrijal/placemark/internal/pkg/config"
	"github.com/samirrijal/placemark/internal/pkg/logging"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
	"github.com/samirrijal/placemark/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("placemark-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{Version: version, RateLimit: cfg.Server.RateLimit}

	// Storage
	var kv ports.KeyValueStore
	var cache ports.CacheService
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		kv = postgres.NewKVRepo(db)
		go reportPoolStats(ctx, db)

	case config.DriverValkey:
		vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer vc.Close()
		deps.Cache = vc
		kv = vc

	default:
		store := memory.NewStore()
		go store.RunSweeper(ctx, time.Minute)
		slog.Warn("using in-process storage, data is lost on restart")
		kv = store
		cache = store
	}

	// Cache: valkey when reachable, otherwise in-process
	if cache == nil {
		if deps.Cache == nil && cfg.Valkey.Addr != "" {
			vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
			if err != nil {
				slog.Warn("valkey unavailable, caching in-process", "error", err)
			} else {
				defer vc.Close()
				deps.Cache = vc
			}
		}
		if deps.Cache != nil {
			cache = deps.Cache
		} else {
			store := memory.NewStore()
			go store.RunSweeper(ctx, time.Minute)
			cache = store
		}
	}

	// NATS
	instance := uuid.NewString()
	var publisher ports.EventPublisher
	var subscriber *natsadapter.Subscriber
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, instance)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub.Conn()

			sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, instance)
			if err != nil {
				slog.Warn("nats subscriber unavailable, replicas will not sync", "error", err)
			} else {
				defer sub.Close()
				subscriber = sub
			}
		}
	}
	deps.NATS = natsConn

	// GeoIP
	if cfg.GeoIP.Database != "" {
		resolver, err := geoip.Open(cfg.GeoIP.Database)
		if err != nil {
			slog.Warn("geoip database unavailable", "path", cfg.GeoIP.Database, "error", err)
		} else {
			defer resolver.Close()
			deps.GeoIP = resolver
		}
	}

	// Search upstream
	geocoder := naver.NewClient(naver.Config{
		BaseURL:      cfg.Search.BaseURL,
		ClientID:     cfg.Search.ClientID,
		ClientSecret: cfg.Search.ClientSecret,
		Retries:      cfg.Search.Retries,
		Timeout:      cfg.Search.Timeout,
	})
	if cfg.Search.ClientID == "" || cfg.Search.ClientSecret == "" {
		slog.Warn("search credentials not configured, searches will fail")
	}

	// Use cases
	locationRepo := kvstore.NewLocationRepo(kv, cfg.Storage.Key)
	viewportRepo := kvstore.NewViewportRepo(kv, cfg.Storage.ViewportKey)

	loading := usecases.NewLoadingTracker(publisher)
	viewport := usecases.NewViewportService(viewportRepo, publisher, usecases.NewLocator(cfg.Geolocation.Timeout))
	locations := usecases.NewLocationService(locationRepo, cache, publisher)
	search := usecases.NewSearchService(geocoder, cache, loading, viewport, usecases.SearchOptions{
		PageSize: cfg.Search.Display,
		FreshFor: cfg.Search.FreshFor,
		// every attempt plus the backoff between them
		Timeout: cfg.Search.Timeout*time.Duration(cfg.Search.Retries+1) + 2*time.Second,
	})

	deps.Viewport = viewport
	deps.Guard = usecases.NewGuard(viewport)
	deps.Loading = loading
	deps.Search = search
	deps.Locations = locations

	// Follow the other replicas
	if subscriber != nil {
		err := subscriber.SubscribeViewport(ctx, func(ctx context.Context, state domain.ViewportState) error {
			viewport.Replace(state)
			return nil
		})
		if err != nil {
			slog.Warn("viewport subscription failed", "error", err)
		}
		err = subscriber.SubscribeLocationEvents(ctx, func(ctx context.Context, event domain.LocationEvent) error {
			locations.Invalidate(ctx)
			return nil
		})
		if err != nil {
			slog.Warn("location subscription failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    http.MaxBodySize,
		AppName:      "Placemark API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", cfg.Storage.Driver, "instance", instance)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats copies pgx pool statistics into the db gauges until ctx
// is done.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
