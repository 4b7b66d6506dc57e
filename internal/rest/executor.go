// Package rest implements the signed request primitive of the Advanced Trade
// REST API and the thin managers built on top of it.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/circuitbreaker"
	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://api.coinbase.com"

	apiPrefix = "/api/v3/brokerage"

	defaultMaxRetries    = 2 // three tries in total
	defaultRetryInterval = 200 * time.Millisecond
	defaultTimeout       = 30 * time.Second
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
	Message    string // venue supplied message, when the body carried one
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// transportError marks failures that happened before a response was read.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Doer sends one HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer is told about every completed call, after retries.
type Observer interface {
	RequestDone(method string, statusCode int, elapsed time.Duration, err error)
}

// Executor sends signed REST calls and decodes their JSON responses into
// generic maps. GET calls are retried on transport errors and 5xx responses;
// every call passes through a circuit breaker.
type Executor struct {
	baseURL       string
	signer        auth.Signer
	httpClient    Doer
	breaker       *circuitbreaker.CircuitBreaker
	observer      Observer
	maxRetries    uint64
	retryInterval time.Duration
	logger        *logrus.Entry
}

// Option configures an Executor.
type Option func(*Executor)

func WithBaseURL(u string) Option {
	return func(e *Executor) {
		e.baseURL = u
	}
}

func WithHTTPClient(d Doer) Option {
	return func(e *Executor) {
		e.httpClient = d
	}
}

func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(e *Executor) {
		e.breaker = cb
	}
}

func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithRetry sets how many times a failed GET is retried and the first
// backoff interval.
func WithRetry(maxRetries uint64, interval time.Duration) Option {
	return func(e *Executor) {
		e.maxRetries = maxRetries
		if interval > 0 {
			e.retryInterval = interval
		}
	}
}

// NewExecutor creates an executor signing with signer. A nil signer sends
// unauthenticated requests, which only public endpoints accept.
func NewExecutor(signer auth.Signer, opts ...Option) *Executor {
	e := &Executor{
		baseURL:       DefaultBaseURL,
		signer:        signer,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		logger:        logrus.WithField("component", "rest_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breaker == nil {
		e.breaker = circuitbreaker.NewCircuitBreaker(5, 30*time.Second,
			circuitbreaker.WithFailurePredicate(retryable))
	}
	return e
}

// Do sends one signed call and returns the decoded response body.
//
// Parameters:
//   - method: HTTP method
//   - path: absolute request path, e.g. /api/v3/brokerage/accounts
//   - query: optional query parameters, not part of the signature
//   - body: optional value encoded as the JSON request body
//
// Returns:
//   - map[string]interface{}: the decoded JSON object, empty for an empty body
//   - error: *APIError for non-2xx responses, circuitbreaker.ErrOpen while the
//     breaker is open, or the transport error
func (e *Executor) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (map[string]interface{}, error) {
	if method == "" || path == "" {
		return nil, fmt.Errorf("method and path are required: %w", auth.ErrInvalidArgument)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("error marshaling request body: %w", err)
		}
	}

	var (
		result map[string]interface{}
		status int
	)
	start := time.Now()

	err := e.breaker.Execute(func() error {
		operation := func() error {
			r, code, err := e.attempt(ctx, method, path, query, payload)
			status = code
			if err != nil {
				if method != http.MethodGet || !retryable(err) {
					return backoff.Permanent(err)
				}
				e.logger.WithError(err).Debugf("Retrying %s %s", method, path)
				return err
			}
			result = r
			return nil
		}
		return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), e.maxRetries), ctx))
	})

	if e.observer != nil {
		e.observer.RequestDone(method, status, time.Since(start), err)
	}
	if err != nil {
		e.logger.WithError(err).Debugf("%s %s failed", method, path)
		return nil, err
	}
	return result, nil
}

func (e *Executor) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInterval
	bo.MaxElapsedTime = 10 * time.Second
	return bo
}

// attempt performs one round trip. The status code is 0 when no response
// was received.
func (e *Executor) attempt(ctx context.Context, method, path string, query url.Values, payload []byte) (map[string]interface{}, int, error) {
	u := e.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.signer != nil {
		headers, err := e.signer.SignRequest(method, path, payload)
		if err != nil {
			return nil, 0, fmt.Errorf("error signing request: %w", err)
		}
		for k, v := range headers {
			req.Header[k] = v
		}
	}

	e.logger.Tracef("%s %s", method, u)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &transportError{err: fmt.Errorf("error reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, newAPIError(resp.StatusCode, raw)
	}

	result := make(map[string]interface{})
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error decoding response: %w", err)
	}
	return result, resp.StatusCode, nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(raw)}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

// retryable reports whether err is worth another try: transport failures
// and server side errors. It also decides what trips the circuit breaker.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}
