package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": version,
		})
	}
}

// probe reports one backend's readiness. A nil check means the backend is
// not configured and does not count against readiness.
type probe struct {
	name  string
	check func(ctx context.Context) error
}

func readinessProbes(deps *Dependencies) []probe {
	probes := []probe{{name: "database"}, {name: "nats"}, {name: "cache"}}
	if deps.DB != nil {
		probes[0].check = deps.DB.Ping
	}
	if deps.NATS != nil {
		probes[1].check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	if deps.Cache != nil {
		probes[2].check = deps.Cache.Ping
	}
	// The first viewport read goes to storage.
	if deps.Viewport != nil {
		probes = append(probes, probe{name: "storage", check: func(ctx context.Context) error {
			_, err := deps.Viewport.State(ctx)
			return err
		}})
	}
	return probes
}

var errDisconnected = errors.New("disconnected")

// ReadyHandler checks the configured storage, NATS and cache backends.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			if p.check == nil {
				checks[p.name] = "not configured"
				continue
			}
			if err := p.check(ctx); err != nil {
				checks[p.name] = "error: " + err.Error()
				ready = false
				continue
			}
			checks[p.name] = "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
