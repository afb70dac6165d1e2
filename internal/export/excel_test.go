package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"clinicbot/internal/models"
)

func TestWriteBookings(t *testing.T) {
	bookings := []*models.Booking{
		{
			ID: 1, Name: "Rahul Sharma", Email: "rahul@gmail.com",
			Date: "2025-02-01", Time: "10:30 AM",
			Type: models.DefaultBookingType, Status: models.StatusConfirmed,
			CreatedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			ID: 2, Name: "Anna", Email: "anna@example.com",
			Date: "2025-02-02", Time: "11:00 AM",
			Type: models.DefaultBookingType, Status: models.StatusPending,
			CreatedAt: time.Date(2025, 1, 16, 9, 30, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Status", rows[0][6])
	assert.Equal(t, "Rahul Sharma", rows[1][1])
	assert.Equal(t, models.StatusConfirmed, rows[1][6])
	assert.Equal(t, "anna@example.com", rows[2][2])
}

func TestWriteBookings_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
