// Package notify renders the contact and visit emails and hands them to a
// mailer.Transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/portfolio/backend/internal/mailer"
	"github.com/portfolio/backend/internal/metrics"
	"github.com/portfolio/backend/internal/model"
)

// Subjects of the three notification kinds.
const (
	SubjectAcknowledgment = "We Received Your Message"
	SubjectVisit          = "Portfolio Visit Notification"
)

// DefaultSendTimeout bounds each send when Options.SendTimeout is zero.
const DefaultSendTimeout = 30 * time.Second

// OwnerSubject is the subject of the owner notification for a submission.
func OwnerSubject(name string) string {
	return "Message from " + name
}

// Options configures a Notifier.
type Options struct {
	Sender      string // envelope sender, usually EMAIL_USER
	Recipient   string // owner inbox, defaults to Sender
	OwnerName   string // signature of the acknowledgment
	SendTimeout time.Duration
	Mode        mailer.Mode // metrics label only
	Logger      *slog.Logger
}

// Notifier sends notification emails through a Transport.
type Notifier struct {
	transport mailer.Transport
	sender    string
	recipient string
	ownerName string
	timeout   time.Duration
	mode      string
	log       *slog.Logger
}

// New creates a Notifier.
func New(transport mailer.Transport, opts Options) *Notifier {
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	recipient := opts.Recipient
	if recipient == "" {
		recipient = opts.Sender
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		transport: transport,
		sender:    opts.Sender,
		recipient: recipient,
		ownerName: opts.OwnerName,
		timeout:   timeout,
		mode:      string(opts.Mode),
		log:       log,
	}
}

// NotifyContact sends the owner notification and then the visitor
// acknowledgment. The first failure stops the sequence.
// sub must already be sanitized.
func (n *Notifier) NotifyContact(ctx context.Context, sub model.ContactSubmission) ([]mailer.Receipt, error) {
	name := escaped(sub.Name)
	msgBody := escaped(sub.Message)

	ownerHTML, err := render(ownerTmpl, page{
		Title:   "Message Received",
		Name:    name,
		Email:   sub.Email,
		Message: msgBody,
		Time:    FormatTimestamp(sub.Timestamp),
	})
	if err != nil {
		return nil, err
	}
	ackHTML, err := render(ackTmpl, page{
		Title:   "Thank You for Reaching Out",
		Name:    name,
		Message: msgBody,
		Owner:   escaped(n.ownerName),
	})
	if err != nil {
		return nil, err
	}

	owner := &mailer.Message{
		Kind:    mailer.KindContact,
		From:    mail.Address{Name: sub.Name, Address: n.sender},
		To:      n.recipient,
		ReplyTo: sub.Email,
		Subject: OwnerSubject(sub.Name),
		HTML:    ownerHTML,
	}
	ack := &mailer.Message{
		Kind:    mailer.KindContact,
		From:    mail.Address{Address: n.sender},
		To:      sub.Email,
		ReplyTo: n.recipient,
		Subject: SubjectAcknowledgment,
		HTML:    ackHTML,
	}

	receipts := make([]mailer.Receipt, 0, 2)
	for _, msg := range []*mailer.Message{owner, ack} {
		r, err := n.send(ctx, msg)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// NotifyVisit sends one visit notification to the owner.
func (n *Notifier) NotifyVisit(ctx context.Context, ev model.VisitEvent) (mailer.Receipt, error) {
	body, err := render(visitTmpl, page{
		Title:     "Portfolio Visit",
		Time:      FormatTimestamp(ev.Timestamp),
		UserAgent: escaped(ev.UserAgent),
		Referrer:  escaped(ev.Referrer),
	})
	if err != nil {
		return mailer.Receipt{}, err
	}
	return n.send(ctx, &mailer.Message{
		Kind:    mailer.KindVisit,
		From:    mail.Address{Address: n.sender},
		To:      n.recipient,
		Subject: SubjectVisit,
		HTML:    body,
	})
}

func (n *Notifier) send(ctx context.Context, msg *mailer.Message) (mailer.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	r, err := n.transport.Send(ctx, msg)
	if err != nil {
		metrics.EmailsSent.WithLabelValues(n.mode, "error").Inc()
		if !errors.Is(err, mailer.ErrSendFailed) {
			err = errors.Join(mailer.ErrSendFailed, err)
		}
		return mailer.Receipt{}, fmt.Errorf("notify: %q to %s: %w", msg.Subject, msg.To, err)
	}
	metrics.EmailsSent.WithLabelValues(n.mode, "ok").Inc()
	n.log.DebugContext(ctx, "email sent", "subject", msg.Subject, "message_id", r.MessageID)
	return r, nil
}
