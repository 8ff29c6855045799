package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.Response().Header.Peek(fiber.HeaderCacheControl); len(existing) > 0 {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		// Mutable per-deployment state: clients revalidate with ETag.
		case strings.HasPrefix(path, "/v1/viewport"),
			strings.HasPrefix(path, "/v1/loading"),
			strings.HasPrefix(path, "/v1/locations"),
			path == "/v1/search/displayed",
			path == ScreenSetup || path == ScreenMap:
			ttl = "no-cache"

		case path == "/v1/search":
			ttl = "private, max-age=300" // matches the search freshness window

		case path == "/docs" || path == "/docs/openapi.yaml":
			ttl = "public, max-age=3600"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
