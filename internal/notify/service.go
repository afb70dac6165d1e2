package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clinicbot/internal/models"
)

// Service sends booking emails: a confirmation to the patient and an alert
// to the clinic staff inbox. The staff alert is best-effort and never fails
// the notification.
type Service struct {
	email      EmailSender
	clinicName string
	staffEmail string
	logger     *zerolog.Logger
}

func NewService(email EmailSender, clinicName, staffEmail string, logger *zerolog.Logger) *Service {
	return &Service{
		email:      email,
		clinicName: clinicName,
		staffEmail: staffEmail,
		logger:     logger,
	}
}

func (s *Service) BookingConfirmed(ctx context.Context, booking *models.Booking) error {
	if s.email == nil {
		return fmt.Errorf("email sender is not configured")
	}

	if err := s.email.Send(ctx, EmailMessage{
		To:      booking.Email,
		ToName:  booking.Name,
		Subject: fmt.Sprintf("Appointment Confirmation - %s", s.clinicName),
		Body:    s.patientBody(booking),
	}); err != nil {
		return fmt.Errorf("failed to send confirmation to %s: %w", booking.Email, err)
	}

	if s.staffEmail != "" {
		if err := s.email.Send(ctx, EmailMessage{
			To:      s.staffEmail,
			ToName:  s.clinicName,
			Subject: fmt.Sprintf("New booking #%d: %s", booking.ID, booking.Name),
			Body:    s.staffBody(booking),
		}); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("Failed to send staff alert")
		}
	}

	return nil
}

func (s *Service) patientBody(b *models.Booking) string {
	return fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your appointment at %s is confirmed.\n\n"+
			"Reference number: %d\n"+
			"Type: %s\n"+
			"Date: %s\n"+
			"Time: %s\n\n"+
			"If you need to reschedule or cancel, please contact the clinic.\n\n"+
			"Best regards,\n%s",
		b.Name, s.clinicName, b.ID, b.Type, b.Date, b.Time, s.clinicName,
	)
}

func (s *Service) staffBody(b *models.Booking) string {
	return fmt.Sprintf(
		"A new appointment was booked through the assistant.\n\n"+
			"Reference number: %d\n"+
			"Patient: %s\n"+
			"Email: %s\n"+
			"Type: %s\n"+
			"Date: %s\n"+
			"Time: %s\n"+
			"Status: %s\n",
		b.ID, b.Name, b.Email, b.Type, b.Date, b.Time, b.Status,
	)
}
