package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
)

// Header names of the legacy scheme.
const (
	HeaderAccessKey       = "CB-ACCESS-KEY"
	HeaderAccessSign      = "CB-ACCESS-SIGN"
	HeaderAccessTimestamp = "CB-ACCESS-TIMESTAMP"
)

// LegacySigner signs with HMAC-SHA256 over the request content.
//
// Deprecated: legacy api keys are being retired by the venue. Use TokenSigner.
type LegacySigner struct {
	apiKey string
	secret string
	now    func() time.Time
}

// NewLegacySigner returns an HMAC signer.
//
// Deprecated: use NewTokenSigner.
func NewLegacySigner(apiKey, secret string, opts ...Option) (*LegacySigner, error) {
	if err := requireNonEmpty("api key", apiKey, "secret", secret); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &LegacySigner{apiKey: apiKey, secret: secret, now: o.now}, nil
}

func (s *LegacySigner) Mode() Mode { return ModeLegacy }

func (s *LegacySigner) sealed() {}

// SignRequest implements Signer.
func (s *LegacySigner) SignRequest(method, path string, body []byte) (http.Header, error) {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	sig, err := GenerateRESTSignature(s.secret, ts, method, path, body)
	if err != nil {
		return nil, err
	}
	h := make(http.Header)
	h.Set(HeaderAccessKey, s.apiKey)
	h.Set(HeaderAccessSign, sig)
	h.Set(HeaderAccessTimestamp, ts)
	return h, nil
}

// SignSubscription implements Signer.
func (s *LegacySigner) SignSubscription(msg *coinbase.SubscribeMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: nil subscription message", ErrInvalidArgument)
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)
	sig, err := GenerateSignature(s.secret, ts, msg.Channel, msg.ProductIDs)
	if err != nil {
		return err
	}
	msg.APIKey = s.apiKey
	msg.Timestamp = ts
	msg.Signature = sig
	msg.JWT = ""
	return nil
}

// GenerateSignature returns hex(HMAC-SHA256(secret, timestamp+channel+products)),
// the products joined with ",". It is a pure function of its inputs.
func GenerateSignature(secret, timestamp, channel string, productIDs []string) (string, error) {
	if err := requireNonEmpty("secret", secret, "timestamp", timestamp, "channel", channel); err != nil {
		return "", err
	}
	return sign(secret, timestamp+channel+strings.Join(productIDs, ",")), nil
}

// GenerateRESTSignature returns hex(HMAC-SHA256(secret, timestamp+METHOD+path+body)).
func GenerateRESTSignature(secret, timestamp, method, path string, body []byte) (string, error) {
	if err := requireNonEmpty("secret", secret, "timestamp", timestamp, "method", method, "path", path); err != nil {
		return "", err
	}
	return sign(secret, timestamp+strings.ToUpper(method)+path+string(body)), nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
