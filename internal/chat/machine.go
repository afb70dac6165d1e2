package chat

import (
	"fmt"
	"strings"

	"clinicbot/internal/models"
)

// Effect asks the engine to perform a side effect after a transition.
type Effect int

const (
	// EffectNone: the reply is final, nothing else to do.
	EffectNone Effect = iota
	// EffectAnswer: route the message to the document Q&A collaborator.
	EffectAnswer
	// EffectCreate: persist the collected booking and notify.
	EffectCreate
)

// Transition is the outcome of one conversational step.
type Transition struct {
	Reply   string
	Effect  Effect
	Booking *models.Booking
}

const (
	promptName    = "I can help you book an appointment. First, what is your full name?"
	promptEmail   = "Please enter your email address."
	promptBadMail = "That doesn't look like an email address. Please enter a valid one (example: name@gmail.com)."
	promptDate    = "What date would you like? (e.g. 2025-02-01)"
	promptTime    = "Got it. What time works for you? (e.g. 10:30 AM)"
	replyAbandon  = "Booking cancelled. You can ask me other questions."
	replyCancel   = "Okay, cancelled. How else can I help?"
)

// Advance applies one user message to the session and returns the reply
// plus any side effect for the engine to carry out. It performs no I/O:
// the only mutation is the session itself. On EffectCreate the session is
// left in awaiting_confirmation; the engine resets it only after the
// store accepts the booking, so a failed write keeps the conversation
// where it was.
func Advance(sess *models.Session, msg string) Transition {
	msg = strings.TrimSpace(msg)

	// An explicit cancel aborts the flow from any stage.
	if sess.Stage != models.StageIdle && isCancel(msg) {
		sess.Reset()
		return Transition{Reply: replyCancel}
	}

	switch sess.Stage {
	case models.StageIdle:
		return advanceIdle(sess, msg)

	case models.StageAwaitName:
		if msg == "" {
			return Transition{Reply: promptName}
		}
		sess.Set("name", msg)
		sess.Stage = models.StageAwaitEmail
		return Transition{Reply: promptEmail}

	case models.StageAwaitEmail:
		if !isValidEmail(msg) {
			return Transition{Reply: promptBadMail}
		}
		sess.Set("email", msg)
		sess.Stage = models.StageAwaitDate
		return Transition{Reply: promptDate}

	case models.StageAwaitDate:
		if msg == "" {
			return Transition{Reply: promptDate}
		}
		sess.Set("date", msg)
		sess.Stage = models.StageAwaitTime
		return Transition{Reply: promptTime}

	case models.StageAwaitTime:
		if msg == "" {
			return Transition{Reply: promptTime}
		}
		sess.Set("time", msg)
		sess.Stage = models.StageAwaitConfirm
		return Transition{Reply: confirmationEcho(sess)}

	case models.StageAwaitConfirm:
		if isAffirmative(msg) {
			return Transition{
				Effect: EffectCreate,
				Booking: &models.Booking{
					Name:   sess.Get("name"),
					Email:  sess.Get("email"),
					Date:   sess.Get("date"),
					Time:   sess.Get("time"),
					Status: models.StatusConfirmed,
				},
			}
		}
		if isNegative(msg) {
			sess.Reset()
			return Transition{Reply: replyAbandon}
		}
		return Transition{Reply: confirmationEcho(sess)}

	default:
		// Unknown persisted stage: start over rather than wedge the session.
		sess.Reset()
		return advanceIdle(sess, msg)
	}
}

func advanceIdle(sess *models.Session, msg string) Transition {
	switch {
	case msg == "":
		return Transition{Reply: "Say \"book\" to schedule an appointment, or ask me a question."}
	case isGreeting(msg):
		return Transition{Reply: ""} // engine fills in the clinic greeting
	case isThanks(msg):
		return Transition{Reply: "You're welcome! If you need anything else or want to book an appointment, just let me know."}
	case IsBookingIntent(msg):
		sess.Stage = models.StageAwaitName
		return Transition{Reply: promptName}
	default:
		return Transition{Effect: EffectAnswer}
	}
}

func confirmationEcho(sess *models.Session) string {
	return fmt.Sprintf(
		"Please confirm your appointment details:\n"+
			"- Name: %s\n- Email: %s\n- Date: %s\n- Time: %s\n\n"+
			"Reply \"yes\" to confirm or \"no\" to cancel.",
		sess.Get("name"), sess.Get("email"), sess.Get("date"), sess.Get("time"),
	)
}
