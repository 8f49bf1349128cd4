package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/truck-intake-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/truck-intake-reservation/internal/database"   // MySQL connection pool
	"github.com/iliyamo/truck-intake-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/truck-intake-reservation/internal/middleware" // Rate limiting middleware
	"github.com/iliyamo/truck-intake-reservation/internal/notify"     // SMS dispatch
	"github.com/iliyamo/truck-intake-reservation/internal/queue"      // SMS queue consumer
	"github.com/iliyamo/truck-intake-reservation/internal/repository" // Data access layer
	"github.com/iliyamo/truck-intake-reservation/internal/router"     // Route registration
)

func main() {
	// Load variables from a local .env file when present; in
	// production the environment is set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and fail fast when the database is not
	// reachable at startup.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories share the one pool.
	siteRepo := repository.NewSiteRepo(db)
	scheduleRepo := repository.NewScheduleRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	// SMS dispatch goes through RabbitMQ; the consumer drains the
	// queue in the background and the publisher side never blocks a
	// booking on the broker.
	notifier := notify.NewAMQPFromEnv()
	go func() {
		if err := queue.StartSMSConsumer(); err != nil {
			log.Printf("sms consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// The driver surface is the one exposed to the public internet,
	// so it alone carries the Redis token bucket.  Without Redis the
	// limiter is skipped and the service still comes up.
	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Println("redis unavailable, driver rate limiting disabled")
	}

	siteHandler := handler.NewSiteHandler(siteRepo, cfg.DefaultMinGap)
	adminHandler := handler.NewAdminHandler(siteRepo, scheduleRepo, slotRepo)
	driverHandler := handler.NewDriverHandler(siteRepo, slotRepo, reservationRepo, notifier, cfg.HoldTTL)
	reservationHandler := handler.NewReservationHandler(siteRepo, slotRepo, reservationRepo, notifier)

	router.RegisterRoutes(e) // Health check
	router.RegisterAdmin(e, siteHandler, adminHandler, cfg.JWTSecret)
	router.RegisterDriver(e, driverHandler, reservationHandler, cfg.JWTSecret, limiter)
	router.RegisterOperator(e, reservationHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
