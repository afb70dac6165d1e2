package worker

import (
	"context"
	"encoding/json"

	"clinicbot/internal/events"
	"clinicbot/internal/models"
)

// Subscribe wires the worker to the booking event stream so every booking
// mutation gets mirrored into the spreadsheet.
func (w *SheetsWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		payload, err := decodePayload(event.Payload)
		if err != nil {
			return err
		}
		return w.EnqueueUpsert(context.Background(), &models.Booking{
			ID:     payload.BookingID,
			Name:   payload.Name,
			Email:  payload.Email,
			Date:   payload.Date,
			Time:   payload.Time,
			Type:   models.DefaultBookingType,
			Status: payload.Status,
		})
	})

	bus.Subscribe(events.EventBookingStatusChanged, func(event *events.Event) error {
		payload, err := decodePayload(event.Payload)
		if err != nil {
			return err
		}
		return w.EnqueueStatus(context.Background(), payload.BookingID, payload.Status)
	})

	bus.Subscribe(events.EventBookingDeleted, func(event *events.Event) error {
		payload, err := decodePayload(event.Payload)
		if err != nil {
			return err
		}
		return w.EnqueueDelete(context.Background(), payload.BookingID)
	})
}

func decodePayload(raw []byte) (events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	err := json.Unmarshal(raw, &payload)
	return payload, err
}
