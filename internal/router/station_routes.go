package router

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/voltway/voltway-api/internal/handler" // station handlers
)

// RegisterStationRoutes registers the public station directory.  Browsing
// stations requires no authentication so that anyone can locate a charger
// before signing in.  The optional cache middleware serves repeated reads
// of the directory straight from Redis; pass nil to register the routes
// uncached.
func RegisterStationRoutes(e *echo.Echo, s *handler.StationHandler, cache echo.MiddlewareFunc) {
	// Collect the middleware to apply to public reads.  When caching is
	// disabled the slice stays empty and the routes behave normally.
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	// List stations with optional city, coordinate and radius filters.
	e.GET("/v1/stations", s.List, mw...)
	// Fetch a single station by its id.
	e.GET("/v1/stations/:id", s.Get, mw...)
}
