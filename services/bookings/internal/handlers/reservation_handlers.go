package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praveengys/connectify-sub000/pkg/response"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

// ReserveSlot handles POST /v1/slots/{id}/reservations
func (h *Handlers) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	var req domain.Requester
	if !decodeJSON(w, r, &req) {
		return
	}

	if claims := getClaims(r); claims != nil {
		subject := claims.Subject
		req.UserID = &subject
		if req.Email == "" {
			req.Email = claims.Email
		}
	}

	booking, err := h.reservationService.ReserveSlot(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, booking)
}
