package domain

import (
	"context"
	"time"

	"clinicbot/internal/models"
)

// Repository is the booking record store consumed by the chat engine and
// the staff dashboard.
type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	SearchBookings(ctx context.Context, q, status string) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, newStatus, actorRole string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64, actorRole string) error
	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
	ListAuditLog(ctx context.Context) ([]*models.AuditLogEntry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountOnDate(ctx context.Context, date string) (int, error)
}

// StateRepository persists per-session conversation state.
type StateRepository interface {
	GetState(ctx context.Context, sessionID string) (*models.Session, error)
	SetState(ctx context.Context, session *models.Session) error
	ClearState(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

// StateManager is the session-state surface used by the chat engine.
type StateManager interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	ClearSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

// Answer is a document-grounded reply. Grounded=false means the corpus has
// no answer and the assistant must say so instead of inventing one.
type Answer struct {
	Text     string
	Grounded bool
}

// Answerer is the document question-answering collaborator.
type Answerer interface {
	Answer(ctx context.Context, question string) (Answer, error)
}

// Notifier delivers booking confirmations. Failures are non-fatal to
// booking persistence.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *models.Booking) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter mirrors bookings into a spreadsheet.
type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}
