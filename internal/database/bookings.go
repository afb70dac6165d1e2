package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicbot/internal/models"
)

// CreateBooking inserts a confirmed booking and fills in its id and
// timestamp. Id assignment is serialized by sqlite, so concurrent creates
// never share an id.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Type == "" {
		booking.Type = models.DefaultBookingType
	}
	if booking.Status == "" {
		booking.Status = models.StatusConfirmed
	}

	query := `INSERT INTO bookings (name, email, date, time, type, status, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.Name,
		booking.Email,
		booking.Date,
		booking.Time,
		booking.Type,
		booking.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, name, email, date, time, type, status, created_at
              FROM bookings WHERE id = ?`

	var b models.Booking
	err := db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.Type, &b.Status, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

// ListBookings returns all bookings, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT id, name, email, date, time, type, status, created_at
              FROM bookings ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// SearchBookings filters by a case-insensitive substring of name or email
// and/or an exact status. Empty arguments mean "no filter".
func (db *DB) SearchBookings(ctx context.Context, q, status string) ([]*models.Booking, error) {
	query := `SELECT id, name, email, date, time, type, status, created_at
              FROM bookings WHERE 1=1`
	var args []any

	if q != "" {
		query += ` AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ?)`
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// UpdateBookingStatus changes the status of one booking and appends the
// audit entry in the same transaction; either both happen or neither.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, newStatus, actorRole string) (*models.Booking, error) {
	if !models.ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var b models.Booking
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, email, date, time, type, status, created_at FROM bookings WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.Type, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read booking in tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, newStatus, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if err := appendAuditTx(ctx, tx, &models.AuditLogEntry{
		BookingID: id,
		ActorRole: actorRole,
		Action:    models.ActionStatusChange,
		OldStatus: b.Status,
		NewStatus: newStatus,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	b.Status = newStatus
	return &b, nil
}

// DeleteBooking removes a booking and appends the audit entry in the same
// transaction. Existing audit rows for the booking are left untouched.
func (db *DB) DeleteBooking(ctx context.Context, id int64, actorRole string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var oldStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&oldStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read booking in tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if err := appendAuditTx(ctx, tx, &models.AuditLogEntry{
		BookingID: id,
		ActorRole: actorRole,
		Action:    models.ActionDelete,
		OldStatus: oldStatus,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// CountByStatus returns booking counts keyed by status.
func (db *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CountOnDate counts bookings whose appointment date equals the given
// free-text date string.
func (db *DB) CountOnDate(ctx context.Context, date string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE date = ?`, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings on date: %w", err)
	}
	return count, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.Type, &b.Status, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
