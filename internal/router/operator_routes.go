package router

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/voltway/voltway-api/internal/handler"    // station handlers
	"github.com/voltway/voltway-api/internal/middleware" // JWT and role middleware
)

// RegisterOperatorRoutes registers the station management endpoints.
// Only users carrying the OPERATOR role may create, update or delete
// stations; drivers get a 403 from the role middleware.
func RegisterOperatorRoutes(e *echo.Echo, stations *handler.StationHandler, jwtSecret string) {
	g := e.Group("/v1/stations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OPERATOR"))

	// Add a new station to the directory.
	g.POST("", stations.Create)
	// Update pricing, power, address or the active flag.
	g.PUT("/:id", stations.Update)
	// Remove a station entirely.
	g.DELETE("/:id", stations.Delete)
}
