package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Load .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/voltway/voltway-api/internal/config"     // Internal config loader
	"github.com/voltway/voltway-api/internal/database"   // MySQL connection pool
	"github.com/voltway/voltway-api/internal/handler"    // HTTP handlers
	"github.com/voltway/voltway-api/internal/middleware" // Rate limiting and caching
	"github.com/voltway/voltway-api/internal/queue"      // Event consumer
	"github.com/voltway/voltway-api/internal/repository" // Data access layer
	"github.com/voltway/voltway-api/internal/router"     // Route registration
	queue_publisher "github.com/voltway/voltway-api/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and fail fast when the database is unreachable.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and response caching. A nil client simply
	// disables both; the API itself keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	// Repositories share the single pool.
	stationRepo := repository.NewStationRepo(db)
	vehicleRepo := repository.NewVehicleRepo(db)
	walletRepo := repository.NewWalletRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	// The publisher emits reservation and session events to RabbitMQ.
	events := queue_publisher.New()

	// Handlers.
	stationHandler := handler.NewStationHandler(stationRepo)
	vehicleHandler := handler.NewVehicleHandler(vehicleRepo)
	walletHandler := handler.NewWalletHandler(walletRepo)
	reservationHandler := handler.NewReservationHandler(reservationRepo, stationRepo, vehicleRepo, walletRepo, cfg.BookingFeeCents, events)

	e := echo.New() // Create Echo instance

	// Global token-bucket rate limiter. Fails open when Redis is down.
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled && rdb != nil {
		e.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}

	// Response cache for the public station directory.
	var cache echo.MiddlewareFunc
	cacheCfg := config.LoadCacheConfig()
	if cacheCfg.Enabled && rdb != nil {
		cache = middleware.NewRedisCache(cacheCfg, rdb)
	}

	router.RegisterRoutes(e)                                  // Health check
	router.RegisterStationRoutes(e, stationHandler, cache)    // Public directory
	router.RegisterOperatorRoutes(e, stationHandler, cfg.JWTSecret)
	router.RegisterDriverRoutes(e, stationHandler, vehicleHandler, walletHandler, reservationHandler, cfg.JWTSecret)

	// Consume reservation and session events in the background. The
	// consumer reconnects on its own; a missing broker only costs the
	// event log.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
