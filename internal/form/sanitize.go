package form

import (
	"strings"
	"time"

	"github.com/portfolio/backend/internal/model"
)

// Length caps, in runes.
const (
	MaxNameLength    = 100
	MaxMessageLength = 5000
	MaxVisitField    = 200
)

// Defaults for absent visit fields.
const (
	DefaultUserAgent = "Unknown"
	DefaultReferrer  = "Direct Visit"
)

// TimestampLayout matches the ISO 8601 form browsers emit from Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// now is swapped in tests.
var now = time.Now

// Trim strips surrounding whitespace and caps s at max runes. The cut can
// expose new trailing whitespace, so it trims once more; the result is a
// fixed point of Trim.
func Trim(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SanitizeContact normalizes a validated submission. Name and message must
// survive trimming; an empty result is an empty_after_sanitization error.
// An empty timestamp is filled with the current UTC time.
func SanitizeContact(sub model.ContactSubmission) (model.ContactSubmission, error) {
	out := model.ContactSubmission{
		Name:      Trim(sub.Name, MaxNameLength),
		Email:     NormalizeEmail(sub.Email),
		Message:   Trim(sub.Message, MaxMessageLength),
		Timestamp: strings.TrimSpace(sub.Timestamp),
	}
	if out.Name == "" {
		return out, fieldError(KindEmptyAfterSanitization, "name")
	}
	if out.Message == "" {
		return out, fieldError(KindEmptyAfterSanitization, "message")
	}
	if out.Timestamp == "" {
		out.Timestamp = now().UTC().Format(TimestampLayout)
	}
	return out, nil
}

// SanitizeVisit trims and caps the free-text fields and applies defaults.
func SanitizeVisit(ev model.VisitEvent) model.VisitEvent {
	out := model.VisitEvent{
		UserAgent: Trim(ev.UserAgent, MaxVisitField),
		Referrer:  Trim(ev.Referrer, MaxVisitField),
		Timestamp: strings.TrimSpace(ev.Timestamp),
	}
	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	if out.Referrer == "" {
		out.Referrer = DefaultReferrer
	}
	return out
}
