package router

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/voltway/voltway-api/internal/handler"    // driver-facing handlers
	"github.com/voltway/voltway-api/internal/middleware" // JWT and role middleware
)

// RegisterDriverRoutes registers every endpoint an authenticated driver
// uses: vehicles, the wallet, reservations and station favorites.  All
// routes live under /v1 behind the JWT middleware; both DRIVER and
// OPERATOR roles are accepted so operators can exercise the same flows.
func RegisterDriverRoutes(e *echo.Echo, stations *handler.StationHandler, vehicles *handler.VehicleHandler, wallets *handler.WalletHandler, reservations *handler.ReservationHandler, jwtSecret string) {
	// Create the protected group.  Every handler registered on it runs the
	// JWTAuth middleware followed by the role check.
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("DRIVER", "OPERATOR"))

	// Vehicle registry: plain per-user CRUD.
	g.GET("/vehicles", vehicles.List)
	g.POST("/vehicles", vehicles.Create)
	g.GET("/vehicles/:id", vehicles.Get)
	g.PUT("/vehicles/:id", vehicles.Update)
	g.DELETE("/vehicles/:id", vehicles.Delete)

	// Wallet: balance, statement and deposits.
	g.GET("/wallet", wallets.Get)
	g.GET("/wallet/transactions", wallets.ListTransactions)
	g.POST("/wallet/deposit", wallets.Deposit)

	// Reservation lifecycle.  Create charges the booking fee; the three
	// transition endpoints drive the state machine forward.
	g.GET("/reservations", reservations.List)
	g.POST("/reservations", reservations.Create)
	g.GET("/reservations/:id", reservations.Get)
	g.PUT("/reservations/:id/cancel", reservations.Cancel)
	g.PUT("/reservations/:id/start", reservations.Start)
	g.PUT("/reservations/:id/complete", reservations.Complete)

	// Station favorites: toggle on a station, list the caller's set.
	g.POST("/stations/:id/favorite", stations.ToggleFavorite)
	g.GET("/favorites", stations.ListFavorites)
}
