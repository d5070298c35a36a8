package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praveengys/connectify-sub000/pkg/auth"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/pkg/response"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

// ListBookings handles listing bookings for admin
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.BookingFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			writeServiceError(w, r, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, raw))
			return
		}
		filter.Status = &st
	}

	bookings, err := h.lifecycleService.ListBookings(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.lifecycleService.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.lifecycleService.ApproveBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) DenyBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.lifecycleService.DenyBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, booking)
}

type sessionReq struct {
	Password string `json:"password"`
}

type sessionRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateAdminSession exchanges the operator password for an admin token.
func (h *Handlers) CreateAdminSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := auth.CheckPassword(req.Password, h.config.Auth.AdminPasswordHash)
	if errors.Is(err, auth.ErrLoginDisabled) {
		response.WriteError(w, http.StatusServiceUnavailable, "Operator login is not configured", response.CodeLoginDisabled)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Password check failed", "error", err)
		response.InternalError(w, "Internal server error")
		return
	}
	if !ok {
		logger.WarnContext(r.Context(), "Rejected operator login", "remote_addr", r.RemoteAddr)
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	ttl := h.config.Auth.AdminTokenTTL
	token, err := auth.NewAdminToken("operator", h.config.Auth.JWTSecret, ttl)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign admin token", "error", err)
		response.InternalError(w, "Internal server error")
		return
	}
	response.JSON(w, http.StatusOK, sessionRes{Token: token, ExpiresAt: time.Now().Add(ttl)})
}
