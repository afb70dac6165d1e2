package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Type      string    `json:"type"`
	Status    string    `json:"status"` // pending, confirmed, cancelled, completed
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogEntry records a staff mutation of a booking. Entries reference the
// booking by id only; deleting the booking leaves them in place.
type AuditLogEntry struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	ActorRole string    `json:"actor_role"` // receptionist, admin
	Action    string    `json:"action"`     // status_change, delete
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
