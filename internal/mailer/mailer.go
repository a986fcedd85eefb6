// Package mailer delivers rendered notifications. Two interchangeable
// transports exist: DevTransport, which never touches the network, and
// LiveTransport, which submits over SMTP. Select picks one at startup.
package mailer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/storage"
)

var (
	ErrSendFailed     = errors.New("mailer: failed to send email")
	ErrInvalidMessage = errors.New("mailer: invalid message")
	ErrInvalidConfig  = errors.New("mailer: invalid config")
)

// Transport sends a rendered message.
// Implementations are immutable after construction and safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *Message) (Receipt, error)
}

// Receipt acknowledges an accepted message.
type Receipt struct {
	MessageID string `json:"messageId"`
	Response  string `json:"response"`
}

// Mode names the selected transport.
type Mode string

const (
	ModeDev  Mode = "DEV"
	ModeLive Mode = "LIVE"
)

// SelectMode is the pure decision behind Select: development mode or a
// missing sender credential means DEV, anything else LIVE.
func SelectMode(cfg config.Mail) Mode {
	if cfg.Live() {
		return ModeLive
	}
	return ModeDev
}

// Select builds the transport for cfg. It runs once at process start; a
// LIVE transport with bad credentials still constructs and fails on its
// first Send. Errors are limited to unusable local settings such as an
// unreadable DKIM key.
func Select(cfg config.Mail, log *slog.Logger) (Transport, Mode, error) {
	if log == nil {
		log = slog.Default()
	}
	mode := SelectMode(cfg)
	if mode == ModeDev {
		var dump storage.Storage
		if cfg.DevDir != "" {
			dump = storage.NewLocalStorage(cfg.DevDir)
		}
		return NewDevTransport(log, dump), mode, nil
	}

	signer, err := LoadSigner(cfg)
	if err != nil {
		return nil, mode, err
	}
	t, err := NewLiveTransport(LiveOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Secure:   cfg.Secure,
		Username: cfg.User,
		Auth:     authFor(cfg),
		Signer:   signer,
	})
	if err != nil {
		return nil, mode, err
	}
	return t, mode, nil
}
