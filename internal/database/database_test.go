package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicbot/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestBooking(t *testing.T, db *DB, name, email, date string) *models.Booking {
	t.Helper()
	b := &models.Booking{
		Name:  name,
		Email: email,
		Date:  date,
		Time:  "10:00 AM",
	}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)

	b := createTestBooking(t, db, "Rahul Sharma", "rahul@gmail.com", "2025-02-01")

	assert.NotZero(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, models.DefaultBookingType, b.Type)
	assert.Equal(t, models.StatusConfirmed, b.Status)

	got, err := db.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rahul Sharma", got.Name)
	assert.Equal(t, "rahul@gmail.com", got.Email)
	assert.Equal(t, "2025-02-01", got.Date)
	assert.Equal(t, "10:00 AM", got.Time)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBooking(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookings_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := createTestBooking(t, db, "First", "first@example.com", "2025-02-01")
	second := createTestBooking(t, db, "Second", "second@example.com", "2025-02-02")
	third := createTestBooking(t, db, "Third", "third@example.com", "2025-02-03")

	bookings, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 3)
	assert.Equal(t, third.ID, bookings[0].ID)
	assert.Equal(t, second.ID, bookings[1].ID)
	assert.Equal(t, first.ID, bookings[2].ID)
}

func TestSearchBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	anna := createTestBooking(t, db, "Anna Karenina", "anna@example.com", "2025-02-01")
	boris := createTestBooking(t, db, "Boris", "boris@gmail.com", "2025-02-02")
	_, err := db.UpdateBookingStatus(ctx, boris.ID, models.StatusCancelled, models.RoleAdmin)
	require.NoError(t, err)

	found, err := db.SearchBookings(ctx, "ANNA", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, anna.ID, found[0].ID)

	found, err = db.SearchBookings(ctx, "gmail", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, boris.ID, found[0].ID)

	found, err = db.SearchBookings(ctx, "", models.StatusCancelled)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, boris.ID, found[0].ID)

	found, err = db.SearchBookings(ctx, "anna", models.StatusCancelled)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUpdateBookingStatus_WritesAuditAtomically(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "Anna", "anna@example.com", "2025-02-01")

	updated, err := db.UpdateBookingStatus(ctx, b.ID, models.StatusCompleted, models.RoleReceptionist)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	entries, err := db.ListAuditLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, b.ID, entries[0].BookingID)
	assert.Equal(t, models.RoleReceptionist, entries[0].ActorRole)
	assert.Equal(t, models.ActionStatusChange, entries[0].Action)
	assert.Equal(t, models.StatusConfirmed, entries[0].OldStatus)
	assert.Equal(t, models.StatusCompleted, entries[0].NewStatus)
}

func TestUpdateBookingStatus_InvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "Anna", "anna@example.com", "2025-02-01")

	_, err := db.UpdateBookingStatus(ctx, b.ID, "bogus", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// No audit entry for the failed mutation.
	entries, err := db.ListAuditLog(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateBookingStatus_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.UpdateBookingStatus(context.Background(), 999, models.StatusCancelled, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := db.ListAuditLog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteBooking_KeepsAuditHistory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "Anna", "anna@example.com", "2025-02-01")
	_, err := db.UpdateBookingStatus(ctx, b.ID, models.StatusCancelled, models.RoleReceptionist)
	require.NoError(t, err)

	require.NoError(t, db.DeleteBooking(ctx, b.ID, models.RoleAdmin))

	_, err = db.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := db.ListAuditLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionDelete, entries[0].Action)
	assert.Equal(t, models.StatusCancelled, entries[0].OldStatus)
	assert.Equal(t, models.RoleAdmin, entries[0].ActorRole)
	assert.Equal(t, models.ActionStatusChange, entries[1].Action)
}

func TestDeleteBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)
	assert.ErrorIs(t, db.DeleteBooking(context.Background(), 999, models.RoleAdmin), ErrNotFound)
}

func TestCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestBooking(t, db, "A", "a@example.com", "2025-02-01")
	createTestBooking(t, db, "B", "b@example.com", "2025-02-01")
	c := createTestBooking(t, db, "C", "c@example.com", "2025-02-02")
	_, err := db.UpdateBookingStatus(ctx, c.ID, models.StatusCancelled, models.RoleAdmin)
	require.NoError(t, err)

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusConfirmed])
	assert.Equal(t, 1, counts[models.StatusCancelled])

	n, err := db.CountOnDate(ctx, "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountOnDate(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreateBooking_ConcurrentIDsUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const workers = 10
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &models.Booking{
				Name:  fmt.Sprintf("Patient %d", i),
				Email: fmt.Sprintf("p%d@example.com", i),
				Date:  "2025-02-01",
				Time:  "10:00",
			}
			if err := db.CreateBooking(ctx, b); err == nil {
				ids <- b.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestAppendAudit_Standalone(t *testing.T) {
	db := setupTestDB(t)

	entry := &models.AuditLogEntry{
		BookingID: 5,
		ActorRole: models.RoleAdmin,
		Action:    models.ActionStatusChange,
		OldStatus: models.StatusPending,
		NewStatus: models.StatusConfirmed,
	}
	require.NoError(t, db.AppendAudit(context.Background(), entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}
