package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicbot/internal/database"
	"clinicbot/internal/events"
	"clinicbot/internal/export"
	"clinicbot/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.clientLimiter(r).Allow() {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	type request struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := strings.TrimSpace(body.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	allowed, err := s.sessions.CheckRateLimit(r.Context(), sessionID,
		s.cfg.Chat.RateLimitMessages, time.Duration(s.cfg.Chat.RateLimitWindow)*time.Second)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Rate limit check failed")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many messages, please slow down")
		return
	}

	reply, err := s.engine.HandleMessage(r.Context(), sessionID, body.Message)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Chat message failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"reply":      reply,
	})
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !models.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %s", status))
		return
	}

	var (
		bookings []*models.Booking
		err      error
	)
	if q == "" && status == "" {
		bookings, err = s.store.ListBookings(r.Context())
	} else {
		bookings, err = s.store.SearchBookings(r.Context(), q, status)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list bookings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleBookingByID(w http.ResponseWriter, r *http.Request, role string) {
	id, err := bookingIDFromPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, id)
	case http.MethodPatch:
		s.updateBookingStatus(w, r, id, role)
	case http.MethodDelete:
		if role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		s.deleteBooking(w, r, id, role)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request, id int64) {
	booking, err := s.store.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to get booking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) updateBookingStatus(w http.ResponseWriter, r *http.Request, id int64, role string) {
	type request struct {
		Status string `json:"status"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status: %s", body.Status))
		return
	}

	booking, err := s.store.UpdateBookingStatus(r.Context(), id, body.Status, role)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to update booking status")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.EventBookingStatusChanged, &events.BookingEventPayload{
			BookingID: booking.ID,
			Status:    booking.Status,
			ActorRole: role,
		})
	}

	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) deleteBooking(w http.ResponseWriter, r *http.Request, id int64, role string) {
	if err := s.store.DeleteBooking(r.Context(), id, role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("Failed to delete booking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.EventBookingDeleted, &events.BookingEventPayload{
			BookingID: id,
			ActorRole: role,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.store.ListAuditLog(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list audit log")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": entries})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	byStatus, err := s.store.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count bookings by status")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	today, err := s.store.CountOnDate(r.Context(), time.Now().Format("2006-01-02"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count today's bookings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"today":     today,
		"by_status": byStatus,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.store.ListBookings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list bookings for export")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := export.WriteBookings(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write export")
	}
}

func bookingIDFromPath(path string) (int64, error) {
	const prefix = "/api/v1/bookings/"
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, errors.New("invalid path")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
