package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinicbot/internal/domain"
	"clinicbot/internal/models"
)

const (
	TaskUpsert       = "upsert"
	TaskDelete       = "delete"
	TaskUpdateStatus = "update_status"
)

// SheetTask describes a unit of work for the spreadsheet mirror.
type SheetTask struct {
	Type      string
	BookingID int64
	Booking   *models.Booking
	Status    string
	Attempt   int
	CreatedAt time.Time
}

// SheetsWorker mirrors booking mutations into Google Sheets from a bounded
// in-memory queue. The mirror is best-effort: a task that exhausts its
// retries is logged and dropped, the store stays authoritative.
type SheetsWorker struct {
	sheets      domain.SheetsWriter
	retryPolicy RetryPolicy
	queue       chan SheetTask
	logger      *zerolog.Logger
}

func NewSheetsWorker(sheets domain.SheetsWriter, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SheetsWorker{
		sheets:      sheets,
		retryPolicy: retry,
		queue:       make(chan SheetTask, models.WorkerQueueSize),
		logger:      logger,
	}
}

func (w *SheetsWorker) EnqueueUpsert(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, SheetTask{Type: TaskUpsert, BookingID: booking.ID, Booking: booking})
}

func (w *SheetsWorker) EnqueueStatus(ctx context.Context, bookingID int64, status string) error {
	if bookingID == 0 || status == "" {
		return errors.New("booking id and status are required")
	}
	return w.enqueue(ctx, SheetTask{Type: TaskUpdateStatus, BookingID: bookingID, Status: status})
}

func (w *SheetsWorker) EnqueueDelete(ctx context.Context, bookingID int64) error {
	if bookingID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, SheetTask{Type: TaskDelete, BookingID: bookingID})
}

func (w *SheetsWorker) enqueue(ctx context.Context, task SheetTask) error {
	task.CreatedAt = time.Now()
	select {
	case w.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		w.logger.Warn().
			Str("task_type", task.Type).
			Int64("booking_id", task.BookingID).
			Msg("Sheets queue full, task dropped")
		return errors.New("sheets queue is full")
	}
}

// Start launches the main loop; it stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, task)
		}
	}
}

func (w *SheetsWorker) processTask(ctx context.Context, task SheetTask) {
	err := w.apply(ctx, task)
	if err == nil {
		w.logger.Debug().
			Str("task_type", task.Type).
			Int64("booking_id", task.BookingID).
			Msg("Sheets task completed")
		return
	}

	task.Attempt++
	if task.Attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).
			Str("task_type", task.Type).
			Int64("booking_id", task.BookingID).
			Int("attempts", task.Attempt).
			Msg("Sheets task failed, giving up")
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	w.logger.Warn().Err(err).
		Str("task_type", task.Type).
		Int64("booking_id", task.BookingID).
		Dur("retry_in", delay).
		Msg("Sheets task failed, will retry")

	// Requeue after the backoff delay without blocking the main loop.
	t := task
	time.AfterFunc(delay, func() {
		select {
		case w.queue <- t:
		default:
			w.logger.Error().
				Str("task_type", t.Type).
				Int64("booking_id", t.BookingID).
				Msg("Sheets queue full, retry dropped")
		}
	})
}

func (w *SheetsWorker) apply(ctx context.Context, task SheetTask) error {
	switch task.Type {
	case TaskUpsert:
		if task.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.AppendBooking(ctx, task.Booking)
	case TaskDelete:
		return w.sheets.DeleteBookingRow(ctx, task.BookingID)
	case TaskUpdateStatus:
		return w.sheets.UpdateBookingStatus(ctx, task.BookingID, task.Status)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}
