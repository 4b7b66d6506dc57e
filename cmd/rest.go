package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/internal/config"
	"github.com/alejoacosta74/coinbase-api/internal/rest"
)

var errNoCredentials = errors.New("api credentials are required (--api-key-name/--api-secret or --bearer)")

// newRESTClient builds a REST client from the configuration. Public
// endpoints work without credentials when requireAuth is false.
func newRESTClient(cfg *config.Config, requireAuth bool) (*rest.Client, error) {
	var signer auth.Signer
	if cfg.HasCredentials() {
		s, err := auth.NewSigner(cfg.Credentials())
		if err != nil {
			return nil, err
		}
		signer = s
	} else if requireAuth {
		return nil, errNoCredentials
	}

	exec := rest.NewExecutor(signer,
		rest.WithBaseURL(cfg.REST.BaseURL),
		rest.WithHTTPClient(&http.Client{Timeout: cfg.REST.Timeout}),
		rest.WithRetry(cfg.REST.MaxRetries, 200*time.Millisecond),
	)
	return rest.NewClient(exec), nil
}

// restContext bounds one CLI request.
func restContext(parent context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.REST.Timeout * time.Duration(cfg.REST.MaxRetries+1)
	return context.WithTimeout(parent, timeout)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.TabIndent)
}
