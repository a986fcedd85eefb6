package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/portfolio/backend/internal/storage"
)

// DevTransport fabricates receipts without any network I/O. When a Storage
// is supplied each message is also written out as an .html file plus a
// .json metadata sidecar for inspection.
type DevTransport struct {
	log  *slog.Logger
	dump storage.Storage
	now  func() time.Time
}

// NewDevTransport creates a DevTransport. dump may be nil.
func NewDevTransport(log *slog.Logger, dump storage.Storage) *DevTransport {
	if log == nil {
		log = slog.Default()
	}
	return &DevTransport{log: log, dump: dump, now: time.Now}
}

var _ Transport = (*DevTransport)(nil)

// devMetadata is the JSON sidecar written next to each dumped message.
type devMetadata struct {
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Subject   string `json:"subject"`
}

// Send returns a receipt shaped like <dev-{unixMillis}@example.com>.
func (d *DevTransport) Send(ctx context.Context, msg *Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	now := d.now()
	receipt := Receipt{
		MessageID: fmt.Sprintf("<dev-%d@example.com>", now.UnixMilli()),
		Response:  devResponse(msg.Kind),
	}

	d.log.InfoContext(ctx, "dev email",
		"message_id", receipt.MessageID,
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
	)

	if d.dump == nil {
		return receipt, nil
	}
	base := fmt.Sprintf("%s_%s", now.UTC().Format("2006_01_02_150405.000"), filenameSafe(msg.Subject))
	if _, err := d.dump.Save(ctx, base+".html", strings.NewReader(msg.HTML), "text/html"); err != nil {
		return Receipt{}, fmt.Errorf("%w: dump html: %v", ErrSendFailed, err)
	}
	meta, err := json.MarshalIndent(devMetadata{
		MessageID: receipt.MessageID,
		Timestamp: now.UTC().Format(time.RFC3339),
		From:      msg.From.String(),
		To:        msg.To,
		ReplyTo:   msg.ReplyTo,
		Subject:   msg.Subject,
	}, "", "  ")
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: marshal metadata: %v", ErrSendFailed, err)
	}
	if _, err := d.dump.Save(ctx, base+".json", bytes.NewReader(meta), "application/json"); err != nil {
		// an html dump without its sidecar is dropped
		if derr := d.dump.Delete(ctx, base+".html"); derr != nil {
			d.log.WarnContext(ctx, "dev email cleanup failed", "key", base+".html", "error", derr)
		}
		return Receipt{}, fmt.Errorf("%w: dump metadata: %v", ErrSendFailed, err)
	}
	return receipt, nil
}

func devResponse(k Kind) string {
	if k == KindVisit {
		return "Visit logged"
	}
	return "Message logged"
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

func filenameSafe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilename.ReplaceAllString(s, "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
