package chat

import (
	"regexp"
	"strings"
)

var bookingIntentPhrases = []string{"book", "schedule", "appointment", "reserve", "slot"}

var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning",
	"good afternoon", "good evening", "hola",
}

var thanksPhrases = []string{"thanks", "thank you", "thx", "ty"}

var affirmativeTokens = map[string]bool{
	"yes": true, "y": true, "confirm": true, "ok": true, "yep": true, "sure": true,
}

var negativeTokens = map[string]bool{
	"no": true, "n": true, "cancel": true, "nope": true,
}

var cancelPhrases = map[string]bool{
	"cancel": true, "stop": true, "reset": true, "never mind": true, "nevermind": true,
}

// emailShape is a minimal shape check: something@domain.tld. Not full
// address validation.
var emailShape = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)+$`)

// IsBookingIntent reports whether the message asks to start a booking.
func IsBookingIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range bookingIntentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func isGreeting(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range greetingPhrases {
		if strings.Contains(phrase, " ") {
			if strings.Contains(lower, phrase) {
				return true
			}
			continue
		}
		for _, word := range strings.Fields(lower) {
			if strings.Trim(word, ".,!?") == phrase {
				return true
			}
		}
	}
	return false
}

func isThanks(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range thanksPhrases {
		if strings.Contains(phrase, " ") {
			if strings.Contains(lower, phrase) {
				return true
			}
			continue
		}
		for _, word := range strings.Fields(lower) {
			if strings.Trim(word, ".,!?") == phrase {
				return true
			}
		}
	}
	return false
}

func isAffirmative(text string) bool {
	return affirmativeTokens[strings.ToLower(strings.TrimSpace(text))]
}

func isNegative(text string) bool {
	return negativeTokens[strings.ToLower(strings.TrimSpace(text))]
}

func isCancel(text string) bool {
	return cancelPhrases[strings.ToLower(strings.TrimSpace(text))]
}

func isValidEmail(text string) bool {
	return emailShape.MatchString(strings.TrimSpace(text))
}
