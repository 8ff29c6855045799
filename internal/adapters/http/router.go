package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/placemark/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second

	// MaxBodySize fits ten 5 MB photos after base64 expansion plus the rest
	// of a location.
	MaxBodySize = 72 * 1024 * 1024
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware("/metrics", "/v1/health"))

	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/health"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Screens gated on the location permission flag
	app.Get(ScreenSetup, ScreenHandler(deps, ScreenSetup))
	app.Get(ScreenMap, ScreenHandler(deps, ScreenMap))

	v1 := app.Group("/v1")

	v1.Get("/viewport", timeout.NewWithContext(GetViewportHandler(deps), requestTimeout))
	v1.Put("/viewport/center", timeout.NewWithContext(SetCenterHandler(deps), requestTimeout))
	v1.Put("/viewport/zoom", timeout.NewWithContext(SetZoomHandler(deps), requestTimeout))
	v1.Post("/viewport/current-location", timeout.NewWithContext(SetCurrentLocationHandler(deps), requestTimeout))
	v1.Post("/viewport/locate", timeout.NewWithContext(LocateHandler(deps), requestTimeout))
	v1.Post("/viewport/reset", timeout.NewWithContext(ResetViewportHandler(deps), requestTimeout))

	v1.Get("/loading", GetLoadingHandler(deps))
	v1.Post("/loading/reset", ResetLoadingHandler(deps))

	v1.Get("/search", timeout.NewWithContext(SearchHandler(deps), requestTimeout))
	v1.Get("/search/displayed", DisplayedSearchHandler(deps))

	v1.Get("/locations", timeout.NewWithContext(ListLocationsHandler(deps), requestTimeout))
	v1.Get("/locations/grouped", timeout.NewWithContext(GroupedLocationsHandler(deps), requestTimeout))
	v1.Get("/locations/:id", timeout.NewWithContext(GetLocationHandler(deps), requestTimeout))
	v1.Post("/locations", timeout.NewWithContext(SaveLocationHandler(deps), requestTimeout))
	v1.Put("/locations/:id", timeout.NewWithContext(UpdateLocationHandler(deps), requestTimeout))
	v1.Delete("/locations/:id", timeout.NewWithContext(DeleteLocationHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket relay, only when events are flowing
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
