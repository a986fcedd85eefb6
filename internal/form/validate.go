// Package form validates and sanitizes the untrusted request bodies of the
// contact and visit endpoints.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strings"

	"github.com/portfolio/backend/internal/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the basic local@domain.tld shape and is
// also a bare RFC 5322 addr-spec, so the mail transports accept it as a
// recipient or Reply-To.
func ValidEmail(s string) bool {
	if !emailPattern.MatchString(s) || strings.ContainsAny(s, "<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

// Decode reads a single JSON object from r. Anything else, including
// trailing data, is an invalid_body error. Read failures (such as an
// exceeded body limit) are returned wrapped, not as validation errors.
func Decode(r io.Reader) (map[string]any, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("form: read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ValidationError{Kind: KindInvalidBody}
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, &ValidationError{Kind: KindInvalidBody}
	}
	if dec.More() {
		return nil, &ValidationError{Kind: KindInvalidBody}
	}
	return raw, nil
}

// ValidateContact checks that name, email and message are present non-empty
// strings and that email has a valid shape. timestamp is optional.
// Whitespace-only values pass here and are rejected by SanitizeContact.
func ValidateContact(raw map[string]any) (model.ContactSubmission, error) {
	var sub model.ContactSubmission

	name, err := requiredString(raw, "name")
	if err != nil {
		return sub, err
	}
	email, err := requiredString(raw, "email")
	if err != nil {
		return sub, err
	}
	message, err := requiredString(raw, "message")
	if err != nil {
		return sub, err
	}
	if !ValidEmail(email) {
		return sub, fieldError(KindInvalidEmail, "email")
	}
	timestamp, err := optionalString(raw, "timestamp")
	if err != nil {
		return sub, err
	}

	sub.Name = name
	sub.Email = email
	sub.Message = message
	sub.Timestamp = timestamp
	return sub, nil
}

// ValidateVisit requires a non-empty timestamp; userAgent and referrer are
// optional but must be strings when present.
func ValidateVisit(raw map[string]any) (model.VisitEvent, error) {
	var ev model.VisitEvent

	timestamp, err := requiredString(raw, "timestamp")
	if err != nil {
		return ev, err
	}
	if strings.TrimSpace(timestamp) == "" {
		return ev, fieldError(KindMissingField, "timestamp")
	}
	userAgent, err := optionalString(raw, "userAgent")
	if err != nil {
		return ev, err
	}
	referrer, err := optionalString(raw, "referrer")
	if err != nil {
		return ev, err
	}

	ev.Timestamp = timestamp
	ev.UserAgent = userAgent
	ev.Referrer = referrer
	return ev, nil
}

func requiredString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", fieldError(KindMissingField, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fieldError(KindInvalidType, field)
	}
	if s == "" {
		return "", fieldError(KindMissingField, field)
	}
	return s, nil
}

func optionalString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fieldError(KindInvalidType, field)
	}
	return s, nil
}
