package mailer

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	msgauthdkim "github.com/emersion/go-msgauth/dkim"

	"github.com/portfolio/backend/internal/config"
)

// Signer applies DKIM signatures to outgoing messages.
type Signer struct {
	domain     string
	selector   string
	key        crypto.Signer
	headerKeys []string
}

// LoadSigner builds a Signer from the DKIM_* settings. It returns nil, nil
// when DKIM is not configured.
func LoadSigner(cfg config.Mail) (*Signer, error) {
	if !cfg.DKIMEnabled() {
		return nil, nil
	}
	selector := strings.TrimSpace(cfg.DKIMSelector)
	if selector == "" {
		return nil, fmt.Errorf("%w: DKIM_SELECTOR is required when enabling DKIM", ErrInvalidConfig)
	}

	var pemData []byte
	switch {
	case cfg.DKIMPrivateKey != "":
		pemData = []byte(cfg.DKIMPrivateKey)
	case cfg.DKIMKeyPath != "":
		data, err := os.ReadFile(strings.TrimSpace(cfg.DKIMKeyPath))
		if err != nil {
			return nil, fmt.Errorf("%w: read DKIM private key: %v", ErrInvalidConfig, err)
		}
		pemData = data
	default:
		return nil, fmt.Errorf("%w: provide DKIM_KEY_PATH or DKIM_PRIVATE_KEY", ErrInvalidConfig)
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: parse DKIM private key: %v", ErrInvalidConfig, err)
	}
	return &Signer{
		domain:   strings.ToLower(strings.TrimSpace(cfg.DKIMDomain)),
		selector: selector,
		key:      key,
		headerKeys: []string{
			"from",
			"to",
			"reply-to",
			"subject",
			"date",
			"message-id",
			"mime-version",
			"content-type",
		},
	}, nil
}

// Sign returns message with a DKIM-Signature header prepended. A nil Signer
// returns the message unchanged. The signing domain defaults to the sender's.
func (s *Signer) Sign(message []byte, from string) ([]byte, error) {
	if s == nil || s.key == nil {
		return message, nil
	}
	domain := s.domain
	if domain == "" {
		domain = domainOf(from)
	}
	if domain == "" || domain == "localhost" {
		return nil, fmt.Errorf("%w: unable to determine DKIM signing domain", ErrInvalidConfig)
	}

	opts := &msgauthdkim.SignOptions{
		Domain:                 domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: msgauthdkim.CanonicalizationRelaxed,
		BodyCanonicalization:   msgauthdkim.CanonicalizationRelaxed,
		HeaderKeys:             s.headerKeys,
	}

	var signed bytes.Buffer
	if err := msgauthdkim.Sign(&signed, bytes.NewReader(message), opts); err != nil {
		return nil, fmt.Errorf("dkim: signing failed: %w", err)
	}
	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}
			return nil, fmt.Errorf("unsupported private key type in PKCS#8 container")
		}
		pemData = rest
	}
	return nil, fmt.Errorf("no private key found in PEM data")
}
