package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"
)

// LiveOptions configures a LiveTransport.
type LiveOptions struct {
	Host   string
	Port   int
	Secure bool // implicit TLS (port 465); otherwise STARTTLS when offered

	Username string
	Auth     smtp.Auth // nil sends unauthenticated
	Signer   *Signer   // nil disables DKIM
	HeloName string    // defaults to the system hostname

	// DialContext overrides the network dialer, mainly for tests.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// LiveTransport submits messages to an SMTP server. Nothing is dialed at
// construction; every Send opens, uses and closes its own connection.
type LiveTransport struct {
	addr     string
	host     string
	secure   bool
	auth     smtp.Auth
	signer   *Signer
	helo     string
	dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)
}

var _ Transport = (*LiveTransport)(nil)

// NewLiveTransport validates opts and returns a ready transport.
func NewLiveTransport(opts LiveOptions) (*LiveTransport, error) {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		return nil, fmt.Errorf("%w: EMAIL_HOST is required", ErrInvalidConfig)
	}
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, fmt.Errorf("%w: EMAIL_PORT %d out of range", ErrInvalidConfig, opts.Port)
	}

	helo := opts.HeloName
	if helo == "" {
		helo = "localhost"
		if h, err := os.Hostname(); err == nil && h != "" {
			helo = h
		}
	}
	dial := opts.DialContext
	if dial == nil {
		d := &net.Dialer{Timeout: 30 * time.Second}
		dial = d.DialContext
	}

	return &LiveTransport{
		addr:     net.JoinHostPort(host, strconv.Itoa(opts.Port)),
		host:     host,
		secure:   opts.Secure,
		auth:     opts.Auth,
		signer:   opts.Signer,
		helo:     helo,
		dialFunc: dial,
	}, nil
}

// Send renders, optionally signs and submits msg. Every failure wraps
// ErrSendFailed; there is no retry.
func (t *LiveTransport) Send(ctx context.Context, msg *Message) (Receipt, error) {
	raw, err := msg.Bytes()
	if err != nil {
		return Receipt{}, err
	}
	raw, err = t.signer.Sign(raw, msg.From.Address)
	if err != nil {
		return Receipt{}, errors.Join(ErrSendFailed, err)
	}
	if err := t.submit(ctx, msg.From.Address, msg.To, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return Receipt{}, errors.Join(ErrSendFailed, fmt.Errorf("smtp %s: %w", t.addr, err))
	}
	return Receipt{
		MessageID: msg.ID,
		Response:  "250 message accepted by " + t.addr,
	}, nil
}

func (t *LiveTransport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
}

func (t *LiveTransport) submit(ctx context.Context, from, to string, data []byte) error {
	conn, err := t.dialFunc(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock any pending read or write once the context ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if t.secure {
		conn = tls.Client(conn, t.tlsConfig())
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return fmt.Errorf("greeting: %w", err)
	}
	defer client.Close()

	if err := client.Hello(t.helo); err != nil {
		return fmt.Errorf("ehlo: %w", err)
	}
	if !t.secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.tlsConfig()); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if t.auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("auth: server does not advertise AUTH")
		}
		if err := client.Auth(t.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data start: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("data write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("data close: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	return nil
}
