package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultHost is the REST host asserted in token uri claims.
	DefaultHost = "api.coinbase.com"

	AudienceREST      = "retail_rest_api_proxy"
	AudienceWebsocket = "public_websocket_api"

	tokenLifetime = 2 * time.Minute
)

// tokenClaims are the claims of a request token. REST tokens carry the
// method and path in URI, websocket tokens the message type in Verb.
type tokenClaims struct {
	jwt.RegisteredClaims
	URI  string `json:"uri,omitempty"`
	Verb string `json:"verb,omitempty"`
}

// TokenSigner issues short lived JWTs. EC private keys sign with ES256, any
// other secret is used as an HS256 key.
type TokenSigner struct {
	keyName string
	key     interface{}
	method  jwt.SigningMethod
	now     func() time.Time
	host    string
}

// NewTokenSigner parses the secret and returns a signer bound to keyName.
func NewTokenSigner(keyName, secret string, opts ...Option) (*TokenSigner, error) {
	if err := requireNonEmpty("key name", keyName, "secret", secret); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	s := &TokenSigner{
		keyName: keyName,
		now:     o.now,
		host:    o.host,
	}

	// secrets copied from env files often carry literal "\n"
	pemSecret := strings.ReplaceAll(secret, `\n`, "\n")
	if block, _ := pem.Decode([]byte(pemSecret)); block != nil {
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemSecret))
		if err != nil {
			return nil, fmt.Errorf("%w: parse ec private key: %v", ErrInvalidArgument, err)
		}
		s.key = key
		s.method = jwt.SigningMethodES256
	} else {
		s.key = []byte(secret)
		s.method = jwt.SigningMethodHS256
	}

	return s, nil
}

func (s *TokenSigner) Mode() Mode { return ModeToken }

func (s *TokenSigner) sealed() {}

// Algorithm returns the JWS algorithm used to sign tokens.
func (s *TokenSigner) Algorithm() string { return s.method.Alg() }

// RESTToken builds a token authorizing a single call to method+path.
func (s *TokenSigner) RESTToken(method, path string) (string, error) {
	if err := requireNonEmpty("method", method, "path", path); err != nil {
		return "", err
	}
	uri := fmt.Sprintf("%s %s%s", strings.ToUpper(method), s.host, path)
	return s.token(AudienceREST, uri, "")
}

// WebsocketToken builds a token for a subscribe or unsubscribe message.
func (s *TokenSigner) WebsocketToken(verb string) (string, error) {
	if err := requireNonEmpty("verb", verb); err != nil {
		return "", err
	}
	return s.token(AudienceWebsocket, "", strings.ToLower(verb))
}

// SignRequest implements Signer.
func (s *TokenSigner) SignRequest(method, path string, _ []byte) (http.Header, error) {
	token, err := s.RESTToken(method, path)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// SignSubscription implements Signer.
func (s *TokenSigner) SignSubscription(msg *coinbase.SubscribeMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: nil subscription message", ErrInvalidArgument)
	}
	if err := requireNonEmpty("channel", msg.Channel); err != nil {
		return err
	}
	token, err := s.WebsocketToken(msg.Type)
	if err != nil {
		return err
	}
	msg.APIKey = s.keyName
	msg.Timestamp = strconv.FormatInt(s.now().Unix(), 10)
	msg.JWT = token
	msg.Signature = ""
	return nil
}

func (s *TokenSigner) token(audience, uri, verb string) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.keyName,
			Subject:   s.keyName,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
		URI:  uri,
		Verb: verb,
	}

	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.keyName
	token.Header["nonce"] = nonce

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
