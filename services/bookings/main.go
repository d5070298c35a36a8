package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praveengys/connectify-sub000/pkg/config"
	"github.com/praveengys/connectify-sub000/pkg/database"
	"github.com/praveengys/connectify-sub000/pkg/events"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	mw "github.com/praveengys/connectify-sub000/pkg/middleware"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/handlers"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/repository/memory"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/service"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		store    repository.Store
		eventBus events.EventBus
	)

	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store = memory.New().Repositories()
		eventBus = events.NewLocalEventBus()

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				logger.Error("Failed to run migrations", "error", err)
				os.Exit(1)
			}
		}

		store = repository.Store{
			Slots:        repository.NewSlotRepository(pool),
			Reservations: repository.NewReservationRepository(pool),
			Bookings:     repository.NewBookingRepository(pool),
		}

		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL, "bookings")
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = natsBus

	default:
		logger.Error("Unknown store driver", "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Idempotency replay and rate limiting need Redis; without it both are off.
	var (
		idempotency mw.IdempotencyStore
		limiter     *mw.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := mw.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		idempotency = mw.NewRedisIdempotencyStore(redisClient)
		if cfg.RateLimit.Requests > 0 {
			limiter = mw.NewRateLimiter(mw.NewRedisRateLimitStore(redisClient), mw.RateLimitConfig{
				Requests: cfg.RateLimit.Requests,
				Window:   cfg.RateLimit.Window,
			})
		}
	}

	// Initialize services
	notifier := service.NewNotifier(eventBus, store.Slots)
	slotService := service.NewSlotService(store.Slots, eventBus, notifier, cfg)
	reservationService := service.NewReservationService(store.Reservations, notifier, cfg)
	lifecycleService := service.NewLifecycleService(store.Bookings, notifier)

	h := handlers.New(slotService, reservationService, lifecycleService, idempotency, limiter, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	h.Mount(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port, "store", cfg.Database.Driver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
