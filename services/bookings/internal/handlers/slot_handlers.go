package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/pkg/response"
	"github.com/praveengys/connectify-sub000/services/bookings/internal/domain"
)

// CreateSlots handles batch slot creation for a date
func (h *Handlers) CreateSlots(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSlotsReq
	if !decodeJSON(w, r, &req) {
		return
	}

	date, times, err := req.Parse()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.slotService.CreateSlots(r.Context(), date, times)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

// ListAvailableSlots handles GET /v1/slots?date=YYYY-MM-DD
func (h *Handlers) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slots, err := h.slotService.ListAvailableSlots(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, slots)
}

const streamHeartbeat = 15 * time.Second

// StreamAvailableSlots pushes availability snapshots for a date as
// server-sent events until the client disconnects.
func (h *Handlers) StreamAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	ctx := r.Context()
	updates := make(chan []domain.Slot, 1)
	push := func(slots []domain.Slot) {
		for {
			select {
			case updates <- slots:
				return
			default:
			}
			// Replace the unread snapshot with the newer one.
			select {
			case <-updates:
			default:
			}
		}
	}

	if err := h.slotService.SubscribeToAvailableSlots(ctx, date, push); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Streaming not supported", "error", err)
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case slots := <-updates:
			payload, err := json.Marshal(slots)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to encode availability", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: availability\ndata: %s\n\n", payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
