package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/placemark/internal/core/usecases"
)

const (
	ScreenSetup = usecases.ScreenSetup
	ScreenMap   = usecases.ScreenMap
)

// screenNames maps a screen path to the name clients render.
var screenNames = map[string]string{
	ScreenSetup: "setup",
	ScreenMap:   "map",
}

// ScreenHandler gates a screen on the location permission flag. A blocked
// screen answers 302 to the other one; an allowed screen answers with the
// screen name and the viewport to render.
func ScreenHandler(deps *Dependencies, path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := deps.Guard.Resolve(c.UserContext(), path)
		if err != nil {
			return errFromDomain(c, err)
		}
		if target != "" {
			return c.Redirect(target, fiber.StatusFound)
		}

		state, err := deps.Viewport.State(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"screen":   screenNames[path],
			"viewport": newViewportResponse(state),
		})
	}
}
