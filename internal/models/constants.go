package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	RoleReceptionist = "receptionist"
	RoleAdmin        = "admin"
)

const (
	ActionStatusChange = "status_change"
	ActionDelete       = "delete"
)

const (
	StageIdle         = "idle"
	StageAwaitName    = "awaiting_name"
	StageAwaitEmail   = "awaiting_email"
	StageAwaitDate    = "awaiting_date"
	StageAwaitTime    = "awaiting_time"
	StageAwaitConfirm = "awaiting_confirmation"
)

// DefaultBookingType is attached to every booking created through the chat
// flow; there is a single service type in a single-tenant clinic.
const DefaultBookingType = "Dental Consultation"

const (
	// DefaultSessionTTL время жизни состояния сессии в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// WorkerQueueSize размер очереди воркера синхронизации
	WorkerQueueSize = 128
)

// ValidStatus reports whether s is one of the persisted booking statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
