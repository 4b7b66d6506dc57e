// Package auth produces the credentials attached to REST calls and websocket
// subscriptions. The signing scheme is picked once, from the supplied
// credentials, when the signer is built.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/sirupsen/logrus"
)

// ErrInvalidArgument is returned for empty or malformed signing inputs.
var ErrInvalidArgument = errors.New("invalid argument")

// Mode identifies the signing scheme of a Signer.
type Mode int

const (
	ModeToken  Mode = iota + 1 // short lived JWT, the default for CDP keys
	ModeLegacy                 // HMAC-SHA256 request signature
	ModeOAuth                  // pre-issued bearer token
)

func (m Mode) String() string {
	switch m {
	case ModeToken:
		return "token"
	case ModeLegacy:
		return "legacy"
	case ModeOAuth:
		return "oauth"
	default:
		return "unknown"
	}
}

// Signer attaches authentication material to outgoing requests.
// Implementations are TokenSigner, LegacySigner and OAuthSigner.
type Signer interface {
	Mode() Mode
	// SignRequest returns the headers authenticating one REST call.
	SignRequest(method, path string, body []byte) (http.Header, error)
	// SignSubscription fills the credential fields of a subscription message.
	SignSubscription(msg *coinbase.SubscribeMessage) error

	sealed()
}

// Credentials are supplied once and never change for the life of a client.
type Credentials struct {
	KeyName string // API key name / id
	Secret  string // EC private key PEM, HMAC secret, or legacy API secret
	Bearer  string // OAuth access token, exclusive with KeyName/Secret
	Legacy  bool   // sign with the deprecated HMAC scheme
}

// String keeps secrets out of logs and fmt output.
func (c Credentials) String() string {
	switch {
	case c.Bearer != "":
		return "Credentials{oauth}"
	case c.KeyName != "":
		return fmt.Sprintf("Credentials{key=%s}", c.KeyName)
	default:
		return "Credentials{}"
	}
}

// Option configures a signer.
type Option func(*options)

type options struct {
	now  func() time.Time
	host string
}

// WithClock overrides the wall clock used for timestamps and token lifetimes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithHost sets the REST host embedded in token uri claims.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:  time.Now,
		host: DefaultHost,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSigner selects the signing scheme that matches the credentials.
func NewSigner(creds Credentials, opts ...Option) (Signer, error) {
	switch {
	case creds.Bearer != "":
		if creds.KeyName != "" || creds.Secret != "" {
			return nil, fmt.Errorf("%w: bearer token and api key are mutually exclusive", ErrInvalidArgument)
		}
		return NewOAuthSigner(creds.Bearer)
	case creds.KeyName == "" || creds.Secret == "":
		return nil, fmt.Errorf("%w: api key name and secret are required", ErrInvalidArgument)
	case creds.Legacy:
		logrus.WithField("component", "auth").
			Warn("Legacy HMAC api keys are deprecated, switch to CDP keys and token signing")
		return NewLegacySigner(creds.KeyName, creds.Secret, opts...)
	default:
		return NewTokenSigner(creds.KeyName, creds.Secret, opts...)
	}
}

func requireNonEmpty(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, fields[i])
		}
	}
	return nil
}
