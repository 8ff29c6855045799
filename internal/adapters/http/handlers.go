package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
)

// viewportResponse is the viewport plus its derived phase.
type viewportResponse struct {
	domain.ViewportState
	Phase domain.Phase `json:"phase"`
}

func newViewportResponse(s domain.ViewportState) viewportResponse {
	return viewportResponse{ViewportState: s, Phase: s.Phase()}
}

type centerRequest struct {
	Lat    *float64      `json:"lat"`
	Lng    *float64      `json:"lng"`
	Origin domain.Origin `json:"origin"`
}

func (r centerRequest) point() (domain.GeoPoint, bool) {
	if r.Lat == nil || r.Lng == nil {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: *r.Lat, Lng: *r.Lng}, true
}

type zoomRequest struct {
	Zoom   *int          `json:"zoom"`
	Origin domain.Origin `json:"origin"`
}

// GetViewportHandler returns the current viewport.
func GetViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := deps.Viewport.State(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// SetCenterHandler moves the map center.
func SetCenterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req centerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, ok := req.point()
		if !ok {
			return errBadRequest(c, "lat and lng are required")
		}
		state, err := deps.Viewport.SetCenter(c.UserContext(), p, req.Origin)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// SetZoomHandler changes the zoom level. Out-of-range levels are clamped.
func SetZoomHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req zoomRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Zoom == nil {
			return errBadRequest(c, "zoom is required")
		}
		state, err := deps.Viewport.SetZoom(c.UserContext(), *req.Zoom, req.Origin)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// SetCurrentLocationHandler centers on a position the client already has.
func SetCurrentLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req centerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, ok := req.point()
		if !ok {
			return errBadRequest(c, "lat and lng are required")
		}
		state, err := deps.Viewport.SetCurrentLocation(c.UserContext(), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// LocateHandler reads one position and centers on it, falling back to the
// default center. The body is an optional position report from the client;
// without one the caller's IP address is looked up.
func LocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var provider ports.LocationProvider
		if len(c.Body()) > 0 {
			var report domain.PositionReport
			if err := c.BodyParser(&report); err != nil {
				return errBadRequest(c, "invalid position report")
			}
			provider = report
		} else if deps.GeoIP != nil {
			provider = deps.GeoIP.ForIP(c.IP())
		}

		state, err := deps.Viewport.Locate(c.UserContext(), provider)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// ResetViewportHandler returns to the default center and zoom.
func ResetViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := deps.Viewport.ResetToDefault(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewportResponse(state))
	}
}

// GetLoadingHandler returns the loading counter.
func GetLoadingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Loading.State())
	}
}

// ResetLoadingHandler clears stuck loading slots.
func ResetLoadingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Loading.Reset(c.UserContext()))
	}
}

// SearchHandler proxies a place query.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		res, err := deps.Search.Search(c.UserContext(), query)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// DisplayedSearchHandler returns the answer to the most recent query.
func DisplayedSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Search.Displayed())
	}
}

// ListLocationsHandler returns saved locations, optionally filtered by
// display category.
func ListLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locs, err := deps.Locations.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		if category := c.Query("category"); category != "" {
			filtered := make([]domain.SavedLocation, 0, len(locs))
			for _, l := range locs {
				if domain.BaseCategory(l.Category) == category || l.Category == category {
					filtered = append(filtered, l)
				}
			}
			locs = filtered
		}

		offset, limit := pageParams(c)
		page, pg := paginate(locs, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GroupedLocationsHandler returns saved locations in display buckets.
func GroupedLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groups, err := deps.Locations.Grouped(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(groups)
	}
}

// GetLocationHandler returns a single saved location.
func GetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := deps.Locations.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(loc)
	}
}

// SaveLocationHandler stores a new location.
func SaveLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var candidate domain.Candidate
		if err := c.BodyParser(&candidate); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Locations.Save(c.UserContext(), candidate)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/locations/" + res.Location.ID)
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// UpdateLocationHandler replaces a saved location. The path id wins over any
// id in the body.
func UpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var loc domain.SavedLocation
		if err := c.BodyParser(&loc); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		loc.ID = c.Params("id")
		res, err := deps.Locations.Update(c.UserContext(), loc)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// DeleteLocationHandler removes a saved location. confirm=true is required.
func DeleteLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		confirmed := c.QueryBool("confirm", false)
		if err := deps.Locations.Delete(c.UserContext(), c.Params("id"), confirmed); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
