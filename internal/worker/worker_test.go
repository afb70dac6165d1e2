package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicbot/internal/events"
	"clinicbot/internal/models"
)

type fakeSheets struct {
	mu       sync.Mutex
	upserts  []*models.Booking
	statuses map[int64]string
	deletes  []int64
	failFor  int
	calls    int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{statuses: make(map[int64]string)}
}

func (f *fakeSheets) AppendBooking(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFor {
		return errors.New("quota exceeded")
	}
	f.upserts = append(f.upserts, b)
	return nil
}

func (f *fakeSheets) UpdateBookingStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeSheets) DeleteBookingRow(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeSheets) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeSheets) status(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeSheets) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, BackoffFactor: 2}
}

func startWorker(t *testing.T, sheets *fakeSheets) *SheetsWorker {
	t.Helper()
	logger := zerolog.Nop()
	w := NewSheetsWorker(sheets, fastRetry(), &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSheetsWorker_ProcessesTasks(t *testing.T) {
	sheets := newFakeSheets()
	w := startWorker(t, sheets)
	ctx := context.Background()

	require.NoError(t, w.EnqueueUpsert(ctx, &models.Booking{ID: 1, Name: "Anna"}))
	require.NoError(t, w.EnqueueStatus(ctx, 1, models.StatusCancelled))
	require.NoError(t, w.EnqueueDelete(ctx, 1))

	waitFor(t, func() bool {
		return sheets.upsertCount() == 1 && sheets.status(1) == models.StatusCancelled && sheets.deleteCount() == 1
	})
}

func TestSheetsWorker_RetriesOnFailure(t *testing.T) {
	sheets := newFakeSheets()
	sheets.failFor = 2
	w := startWorker(t, sheets)

	require.NoError(t, w.EnqueueUpsert(context.Background(), &models.Booking{ID: 7, Name: "Boris"}))

	waitFor(t, func() bool { return sheets.upsertCount() == 1 })
}

func TestSheetsWorker_GivesUpAfterMaxRetries(t *testing.T) {
	sheets := newFakeSheets()
	sheets.failFor = 100
	w := startWorker(t, sheets)

	require.NoError(t, w.EnqueueUpsert(context.Background(), &models.Booking{ID: 7, Name: "Boris"}))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, sheets.upsertCount())
}

func TestSheetsWorker_EnqueueValidation(t *testing.T) {
	logger := zerolog.Nop()
	w := NewSheetsWorker(newFakeSheets(), fastRetry(), &logger)
	ctx := context.Background()

	assert.Error(t, w.EnqueueUpsert(ctx, nil))
	assert.Error(t, w.EnqueueUpsert(ctx, &models.Booking{}))
	assert.Error(t, w.EnqueueStatus(ctx, 0, models.StatusPending))
	assert.Error(t, w.EnqueueStatus(ctx, 1, ""))
	assert.Error(t, w.EnqueueDelete(ctx, 0))
}

func TestSheetsWorker_EventSubscriptions(t *testing.T) {
	sheets := newFakeSheets()
	w := startWorker(t, sheets)

	bus := events.NewEventBus()
	w.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, &events.BookingEventPayload{
		BookingID: 3, Name: "Anna", Email: "anna@example.com",
		Date: "2025-02-01", Time: "10:00", Status: models.StatusConfirmed,
	}))
	require.NoError(t, bus.PublishJSON(events.EventBookingStatusChanged, &events.BookingEventPayload{
		BookingID: 3, Status: models.StatusCompleted,
	}))
	require.NoError(t, bus.PublishJSON(events.EventBookingDeleted, &events.BookingEventPayload{
		BookingID: 3,
	}))

	waitFor(t, func() bool {
		return sheets.upsertCount() == 1 && sheets.status(3) == models.StatusCompleted && sheets.deleteCount() == 1
	})
	assert.Equal(t, "Anna", sheets.upserts[0].Name)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4))
	assert.Equal(t, time.Second, p.NextDelay(0))

	var zero RetryPolicy
	assert.Equal(t, time.Second, zero.NextDelay(1))
}
