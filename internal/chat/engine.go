package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clinicbot/internal/domain"
	"clinicbot/internal/events"
	"clinicbot/internal/metrics"
	"clinicbot/internal/models"
)

// Engine drives conversations: it loads the session, applies the pure
// transition, then performs whatever side effect the transition asked for.
type Engine struct {
	sessions   domain.StateManager
	store      domain.Repository
	answerer   domain.Answerer
	notifier   domain.Notifier
	bus        domain.EventPublisher
	clinicName string
	logger     *zerolog.Logger
}

func NewEngine(
	sessions domain.StateManager,
	store domain.Repository,
	answerer domain.Answerer,
	notifier domain.Notifier,
	bus domain.EventPublisher,
	clinicName string,
	logger *zerolog.Logger,
) *Engine {
	return &Engine{
		sessions:   sessions,
		store:      store,
		answerer:   answerer,
		notifier:   notifier,
		bus:        bus,
		clinicName: clinicName,
		logger:     logger,
	}
}

// HandleMessage processes one inbound message for the given session and
// returns the assistant's reply.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	sess, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}

	metrics.IncChatMessage(sess.Stage)

	tr := Advance(sess, text)

	switch tr.Effect {
	case EffectAnswer:
		reply := e.answerQuestion(ctx, sessionID, text)
		if err := e.sessions.SaveSession(ctx, sess); err != nil {
			e.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to save session")
		}
		return reply, nil

	case EffectCreate:
		return e.createBooking(ctx, sess, tr)

	default:
		reply := tr.Reply
		if reply == "" {
			reply = e.greeting()
		}
		if err := e.sessions.SaveSession(ctx, sess); err != nil {
			e.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to save session")
		}
		return reply, nil
	}
}

func (e *Engine) greeting() string {
	return fmt.Sprintf(
		"Hello! Welcome to %s. I can answer questions about the clinic or help you book an appointment. How can I help you today?",
		e.clinicName,
	)
}

func (e *Engine) answerQuestion(ctx context.Context, sessionID, question string) string {
	if e.answerer == nil {
		return "I don't have any clinic documents loaded yet, so I can only help with bookings. Say \"book\" to schedule an appointment."
	}

	ans, err := e.answerer.Answer(ctx, question)
	if err != nil {
		e.logger.Error().Err(err).Str("session_id", sessionID).Msg("Answerer failed")
		return "Sorry, I couldn't look that up right now. Please try again in a moment."
	}
	if !ans.Grounded {
		return "I'm sorry, that information is not available in our clinic documents. Is there anything else I can help with?"
	}
	return ans.Text
}

// createBooking persists the collected booking. The session is reset only
// after the store accepts the record: on failure the conversation stays in
// the confirmation stage so the patient can simply try again.
func (e *Engine) createBooking(ctx context.Context, sess *models.Session, tr Transition) (string, error) {
	booking := tr.Booking

	if err := e.store.CreateBooking(ctx, booking); err != nil {
		e.logger.Error().Err(err).
			Str("session_id", sess.ID).
			Str("patient", booking.Name).
			Msg("Failed to create booking")
		return "Sorry, I couldn't save your booking just now. Please reply \"yes\" to try again.", nil
	}

	metrics.IncBookingCreated()
	e.logger.Info().
		Int64("booking_id", booking.ID).
		Str("patient", booking.Name).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Msg("Booking created")

	if e.bus != nil {
		if err := e.bus.PublishJSON(events.EventBookingCreated, &events.BookingEventPayload{
			BookingID: booking.ID,
			Name:      booking.Name,
			Email:     booking.Email,
			Date:      booking.Date,
			Time:      booking.Time,
			Status:    booking.Status,
		}); err != nil {
			e.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("Failed to publish booking event")
		}
	}

	emailNote := e.sendConfirmation(ctx, booking)

	sess.Reset()
	if err := e.sessions.SaveSession(ctx, sess); err != nil {
		e.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to reset session")
	}

	return fmt.Sprintf(
		"Your appointment is booked! Reference number: %d.\n%s\nSee you on %s at %s.",
		booking.ID, emailNote, booking.Date, booking.Time,
	), nil
}

func (e *Engine) sendConfirmation(ctx context.Context, booking *models.Booking) string {
	if e.notifier == nil {
		return "We've recorded your booking."
	}
	if err := e.notifier.BookingConfirmed(ctx, booking); err != nil {
		metrics.IncNotification("failure")
		e.logger.Error().Err(err).
			Int64("booking_id", booking.ID).
			Str("email", booking.Email).
			Msg("Failed to send confirmation email")
		return "We couldn't send the confirmation email, but your booking is saved."
	}
	metrics.IncNotification("success")
	return fmt.Sprintf("A confirmation email has been sent to %s.", booking.Email)
}
