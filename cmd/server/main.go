package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/openbid/auction-api/internal/auth"
	"github.com/openbid/auction-api/internal/bidding"
	"github.com/openbid/auction-api/internal/config"
	"github.com/openbid/auction-api/internal/database"
	"github.com/openbid/auction-api/internal/notify"
	"github.com/openbid/auction-api/internal/rejection"
	"github.com/openbid/auction-api/internal/users"
	"github.com/openbid/auction-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the auction API server with graceful shutdown
// support. It sets up the database, the bid event dispatcher, all services
// and the API routes.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Bid event dispatcher: external notifiers consume these events; the
	// auction core itself performs no network calls
	dispatcher := notify.NewDispatcher(256, notify.LogSink)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()

	go dispatcher.Start(dispatcherCtx)

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret, auth.TestUserID)
	authHandlers := auth.NewGinHandlers(authService)

	userService := users.NewService(db)

	biddingService := bidding.NewService(db, userService, dispatcher)
	biddingHandlers := bidding.NewGinHandlers(biddingService)

	rejectionService := rejection.NewService(db, dispatcher)
	rejectionHandlers := rejection.NewGinHandlers(rejectionService)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, biddingHandlers, rejectionHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Bid read routes: Public price and history views
// - Bid write routes: Protected by JWT authentication
// - Seller routes: Protected by JWT authentication, ownership checked in the service
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	biddingHandlers *bidding.GinHandlers,
	rejectionHandlers *rejection.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Public read routes
		products := v1.Group("/products")
		{
			products.GET("/:product_id/bids", biddingHandlers.BidHistoryHandler())
			products.GET("/:product_id/bids/highest", biddingHandlers.HighestBidHandler())
		}

		// Authenticated bidding and moderation routes
		protected := v1.Group("/products")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			protected.POST("/:product_id/bids", biddingHandlers.PlaceBidHandler())
			protected.POST("/:product_id/bidders/:bidder_id/reject", rejectionHandlers.RejectBidderHandler())
			protected.GET("/:product_id/rejections", rejectionHandlers.ListRejectionsHandler())
		}
	}
}
