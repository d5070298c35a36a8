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
	"github.com/praveengys/connectify-sub000/pkg/logger"
	mw "github.com/praveengys/connectify-sub000/pkg/middleware"
	"github.com/praveengys/connectify-sub000/services/gateway/internal/handlers"
	"github.com/praveengys/connectify-sub000/services/gateway/internal/proxy"
)

func main() {
	cfg := config.Load()

	bookingsProxy := proxy.NewServiceProxy(cfg.Server.BookingsURL)
	h := handlers.New(bookingsProxy, cfg.Auth.JWTSecret)

	r := newRouter(h, cfg)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.GatewayPort,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No WriteTimeout: availability streams are long-lived. Handlers bound
		// ordinary calls through the upstream response header timeout.
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service", "port", cfg.Server.GatewayPort, "bookings_url", cfg.Server.BookingsURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}

func newRouter(h *handlers.Handlers, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/slots", h.Bookings)
		r.Get("/slots/stream", h.Bookings)
		r.Post("/slots/{id}/reservations", h.Bookings)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/session", h.Bookings)
			r.With(h.RequireAdmin).HandleFunc("/*", h.Bookings)
		})
	})

	return r
}
