package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	status int
	err    error
}

type fakeObserver struct {
	calls []recordedCall
}

func (o *fakeObserver) RequestDone(method string, status int, _ time.Duration, err error) {
	o.calls = append(o.calls, recordedCall{method: method, status: status, err: err})
}

func newTestExecutor(t *testing.T, handler http.HandlerFunc, opts ...Option) *Executor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	signer, err := auth.NewSigner(auth.Credentials{Bearer: "access-token"})
	require.NoError(t, err)

	opts = append([]Option{
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithRetry(2, time.Millisecond),
	}, opts...)
	return NewExecutor(signer, opts...)
}

func TestExecutor_Do(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		query      url.Values
		body       interface{}
		handler    http.HandlerFunc
		wantTries  int32
		wantResult map[string]interface{}
		wantStatus int // expected APIError status, 0 for success
	}{
		{
			name:   "signed GET with query",
			method: http.MethodGet,
			query:  url.Values{"limit": {"5"}},
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer access-token" || r.URL.Query().Get("limit") != "5" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				_, _ = io.WriteString(w, `{"ok":true}`)
			},
			wantTries:  1,
			wantResult: map[string]interface{}{"ok": true},
		},
		{
			name:   "POST body is JSON",
			method: http.MethodPost,
			body:   map[string]string{"product_id": "BTC-USD"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				if r.Header.Get("Content-Type") != "application/json" || string(raw) != `{"product_id":"BTC-USD"}` {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				_, _ = io.WriteString(w, `{"success":true}`)
			},
			wantTries:  1,
			wantResult: map[string]interface{}{"success": true},
		},
		{
			name:   "empty body decodes to empty map",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantTries:  1,
			wantResult: map[string]interface{}{},
		},
		{
			name:   "GET retried on 5xx",
			method: http.MethodGet,
			handler: func() http.HandlerFunc {
				var n int32
				return func(w http.ResponseWriter, r *http.Request) {
					if atomic.AddInt32(&n, 1) < 3 {
						w.WriteHeader(http.StatusBadGateway)
						return
					}
					_, _ = io.WriteString(w, `{"ok":true}`)
				}
			}(),
			wantTries:  3,
			wantResult: map[string]interface{}{"ok": true},
		},
		{
			name:   "GET gives up after three tries",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantTries:  3,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:   "POST not retried",
			method: http.MethodPost,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantTries:  1,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "4xx not retried",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":"NOT_FOUND","message":"account not found"}`)
			},
			wantTries:  1,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tries int32
			observer := &fakeObserver{}
			exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&tries, 1)
				tt.handler(w, r)
			}, WithObserver(observer))

			result, err := exec.Do(context.Background(), tt.method, "/api/v3/brokerage/test", tt.query, tt.body)

			assert.Equal(t, tt.wantTries, atomic.LoadInt32(&tries))
			require.Len(t, observer.calls, 1)
			if tt.wantStatus != 0 {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				assert.Equal(t, tt.wantStatus, observer.calls[0].status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, result)
			assert.Equal(t, http.StatusOK, observer.calls[0].status)
		})
	}
}

func TestExecutor_APIErrorMessage(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"INVALID_ARGUMENT","message":"limit too large"}`)
	})

	_, err := exec.Do(context.Background(), http.MethodGet, "/api/v3/brokerage/accounts", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "limit too large", apiErr.Message)
	assert.Equal(t, "api error 400: limit too large", apiErr.Error())
}

func TestExecutor_InvalidArguments(t *testing.T) {
	exec := NewExecutor(nil)
	_, err := exec.Do(context.Background(), "", "/x", nil, nil)
	assert.ErrorIs(t, err, auth.ErrInvalidArgument)
	_, err = exec.Do(context.Background(), http.MethodGet, "", nil, nil)
	assert.ErrorIs(t, err, auth.ErrInvalidArgument)
}

func TestExecutor_CircuitBreakerOpens(t *testing.T) {
	var tries int32
	breaker := circuitbreaker.NewCircuitBreaker(2, time.Minute,
		circuitbreaker.WithFailurePredicate(retryable))
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tries, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithCircuitBreaker(breaker), WithRetry(0, time.Millisecond))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := exec.Do(ctx, http.MethodGet, "/api/v3/brokerage/accounts", nil, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}

	_, err := exec.Do(ctx, http.MethodGet, "/api/v3/brokerage/accounts", nil, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tries))
}

func TestExecutor_ClientErrorsDoNotTripBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(1, time.Minute,
		circuitbreaker.WithFailurePredicate(retryable))
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, WithCircuitBreaker(breaker))

	for i := 0; i < 3; i++ {
		_, err := exec.Do(context.Background(), http.MethodGet, "/api/v3/brokerage/accounts", nil, nil)
		assert.False(t, errors.Is(err, circuitbreaker.ErrOpen))
	}
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestExecutor_ContextCancelled(t *testing.T) {
	exec := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Do(ctx, http.MethodGet, "/api/v3/brokerage/accounts", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
