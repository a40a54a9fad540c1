package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"food-ordering-api/config"
	"food-ordering-api/events"
	"food-ordering-api/handlers"
	"food-ordering-api/logger"
	"food-ordering-api/middleware"
	"food-ordering-api/routes"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.ServiceName, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("service_stopped", "", "Service stopped with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDB(db); err != nil {
			log.Error("db_close_failed", "", "Failed to close database", err)
		}
	}()
	if err := config.Migrate(db); err != nil {
		return err
	}
	log.Info("db_ready", "", "Database connected and migrated", slog.String("driver", cfg.DBDriver))

	auth := services.NewAuthService(db)
	if cfg.AdminEmail != "" {
		if _, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			// Orders keep flowing without a broker; events are best effort
			log.Warn("rabbitmq_unavailable", "", "Order events disabled: "+err.Error())
		} else {
			publisher = amqpPublisher
		}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("publisher_close_failed", "", "Failed to close event publisher", err)
		}
	}()

	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	h := handlers.New(
		services.NewOrderService(db, publisher, log),
		services.NewRestaurantService(db),
		auth,
		services.NewCouponService(db),
		tokens,
		log,
	)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"version": "1.0.0",
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Food Ordering API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant", "delivery", "admin"},
		})
	})

	routes.SetupRoutes(r, h, tokens)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_started", "", "Server running on http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping", "", "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server_stopped", "", "Server exited cleanly")
	return nil
}
