package auth

import (
	"fmt"
	"net/http"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
)

// OAuthSigner forwards a pre-issued bearer token. Subscriptions are sent
// unauthenticated, so only public channels are available.
type OAuthSigner struct {
	token string
}

func NewOAuthSigner(token string) (*OAuthSigner, error) {
	if err := requireNonEmpty("bearer token", token); err != nil {
		return nil, err
	}
	return &OAuthSigner{token: token}, nil
}

func (s *OAuthSigner) Mode() Mode { return ModeOAuth }

func (s *OAuthSigner) sealed() {}

// SignRequest implements Signer.
func (s *OAuthSigner) SignRequest(method, path string, _ []byte) (http.Header, error) {
	if err := requireNonEmpty("method", method, "path", path); err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+s.token)
	return h, nil
}

// SignSubscription implements Signer.
func (s *OAuthSigner) SignSubscription(msg *coinbase.SubscribeMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: nil subscription message", ErrInvalidArgument)
	}
	return requireNonEmpty("channel", msg.Channel)
}
