package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/praveengys/connectify-sub000/pkg/auth"
	"github.com/praveengys/connectify-sub000/pkg/config"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	mw "github.com/praveengys/connectify-sub000/pkg/middleware"
	"github.com/praveengys/connectify-sub000/pkg/response"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/service"
)

type Handlers struct {
	slotService        service.SlotService
	reservationService service.ReservationService
	lifecycleService   service.LifecycleService
	idempotency        mw.IdempotencyStore
	limiter            *mw.RateLimiter
	config             *config.Config
}

// New builds the handlers. idempotency may be nil, in which case
// Idempotency-Key headers are ignored. A nil limiter disables rate limiting.
func New(
	slotService service.SlotService,
	reservationService service.ReservationService,
	lifecycleService service.LifecycleService,
	idempotency mw.IdempotencyStore,
	limiter *mw.RateLimiter,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		slotService:        slotService,
		reservationService: reservationService,
		lifecycleService:   lifecycleService,
		idempotency:        idempotency,
		limiter:            limiter,
		config:             cfg,
	}
}

// Mount registers the /v1 API on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/slots", func(r chi.Router) {
			r.Get("/", h.ListAvailableSlots)
			r.Get("/stream", h.StreamAvailableSlots)

			r.Group(func(r chi.Router) {
				r.Use(h.limiter.Middleware())
				r.Use(h.OptionalJWT)
				if h.idempotency != nil {
					r.Use(mw.IdempotencyMiddleware(h.idempotency, h.config.Redis.IdempotencyTTL))
				}
				r.Post("/{id}/reservations", h.ReserveSlot)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(h.limiter.Middleware()).Post("/session", h.CreateAdminSession)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Post("/slots", h.CreateSlots)
				r.Get("/bookings", h.ListBookings)
				r.Get("/bookings/{id}", h.GetBooking)
				r.Post("/bookings/{id}/approve", h.ApproveBooking)
				r.Post("/bookings/{id}/deny", h.DenyBooking)
			})
		})
	})
}

type ctxKey string

const claimsKey ctxKey = "claims"

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, claimsKey, claims)
	return r.WithContext(ctx)
}

// RequireAdmin rejects requests without a valid admin token.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}
		if !claims.IsAdmin() {
			writeServiceError(w, r, domain.ErrPermissionDenied)
			return
		}

		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// OptionalJWT attaches the caller identity when a token is present. A token
// that is present but invalid is rejected.
func (h *Handlers) OptionalJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeServiceError(w, r, err)
			return false
		}
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.WriteErrorWithDetails(w, http.StatusBadRequest, "Invalid input", response.CodeInvalidInput, err.Error())
	case errors.Is(err, domain.ErrSlotNotFound):
		response.NotFound(w, "Slot not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		response.NotFound(w, "Booking not found")
	case errors.Is(err, domain.ErrSlotUnavailable):
		response.WriteError(w, http.StatusConflict, "Slot is no longer available", response.CodeSlotUnavailable)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		response.WriteErrorWithDetails(w, http.StatusConflict, "Booking can no longer change status",
			response.CodeInvalidStateTransition, err.Error())
	case errors.Is(err, domain.ErrTransientConflict):
		w.Header().Set("Retry-After", "1")
		response.WriteError(w, http.StatusServiceUnavailable, "Too much contention, retry shortly", response.CodeTransientConflict)
	case errors.Is(err, domain.ErrPermissionDenied):
		response.Forbidden(w, "Admin access required")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}

func parseDateParam(r *http.Request) (domain.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return domain.Date{}, fmt.Errorf("%w: date query parameter is required", domain.ErrValidation)
	}
	return domain.ParseDate(raw)
}

// parsePagination reads limit and offset. Without a limit every row is returned.
func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
