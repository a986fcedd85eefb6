package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tells a contact email from a visit notification. It is never
// rendered into the message.
type Kind string

const (
	KindContact Kind = "contact"
	KindVisit   Kind = "visit"
)

// Message is a single HTML email.
type Message struct {
	Kind    Kind
	From    mail.Address
	To      string
	ReplyTo string
	Subject string
	HTML    string

	// ID is the Message-ID header value including angle brackets.
	// EnsureID fills it when empty.
	ID   string
	Date time.Time
}

// Validate checks the envelope. Addresses must be bare and single-line so
// that no header can be injected through them.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if err := checkAddress("from", m.From.Address, true); err != nil {
		return err
	}
	if err := checkAddress("to", m.To, true); err != nil {
		return err
	}
	if err := checkAddress("reply-to", m.ReplyTo, false); err != nil {
		return err
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	return nil
}

func checkAddress(field, addr string, required bool) error {
	if addr == "" {
		if required {
			return fmt.Errorf("%w: %s address is required", ErrInvalidMessage, field)
		}
		return nil
	}
	if strings.ContainsAny(addr, "\r\n<>") {
		return fmt.Errorf("%w: malformed %s address", ErrInvalidMessage, field)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, field, err)
	}
	return nil
}

// EnsureID assigns a Message-ID in the sender's domain when none is set.
func (m *Message) EnsureID() string {
	if m.ID == "" {
		m.ID = fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(m.From.Address))
	}
	return m.ID
}

// Bytes renders the message in RFC 5322 form with CRLF line endings and a
// quoted-printable HTML body.
func (m *Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.EnsureID()
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}
	header("From", m.From.String())
	header("To", m.To)
	if m.ReplyTo != "" {
		header("Reply-To", m.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", m.ID)
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(m.HTML)); err != nil {
		return nil, fmt.Errorf("mailer: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("mailer: encode body: %w", err)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i+1 < len(address) {
		return strings.ToLower(address[i+1:])
	}
	return "localhost"
}
