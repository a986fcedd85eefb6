package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/portfolio/backend/internal/config"
)

// gmailScope grants SMTP access for XOAUTH2.
const gmailScope = "https://mail.google.com/"

// authFor picks the SMTP authentication for cfg: XOAUTH2 when a refresh
// token is configured, PLAIN when a password is, otherwise none.
func authFor(cfg config.Mail) smtp.Auth {
	switch {
	case cfg.UsesOAuth():
		endpoint := google.Endpoint
		if cfg.OAuthTokenURL != "" {
			endpoint = oauth2.Endpoint{TokenURL: cfg.OAuthTokenURL}
		}
		oc := &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{gmailScope},
		}
		// The token source refreshes lazily, so bad credentials surface on
		// the first send rather than here.
		ts := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken})
		return NewXOAuth2Auth(cfg.User, ts)
	case cfg.Pass != "":
		return smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	default:
		return nil
	}
}

// xoauth2Auth implements the XOAUTH2 SASL mechanism used by Gmail and
// Outlook SMTP submission.
type xoauth2Auth struct {
	username string
	tokens   oauth2.TokenSource
}

// NewXOAuth2Auth returns an smtp.Auth that fetches bearer tokens from ts.
func NewXOAuth2Auth(username string, ts oauth2.TokenSource) smtp.Auth {
	return &xoauth2Auth{username: username, tokens: ts}
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("xoauth2: refusing to send token over an unencrypted connection")
	}
	tok, err := a.tokens.Token()
	if err != nil {
		return "", nil, fmt.Errorf("xoauth2: token: %w", err)
	}
	resp := "user=" + a.username + "\x01auth=Bearer " + tok.AccessToken + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

// Next answers a server challenge. On failure the server sends a JSON error
// payload and expects an empty response before its final error reply.
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
