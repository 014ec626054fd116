package qtoggleserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajtan/qtoggleserver/pkg/constants"
	"github.com/rajtan/qtoggleserver/pkg/errors"
	"github.com/rajtan/qtoggleserver/pkg/logging"
)

// Option configures client behavior.
type Option func(*options) error

// options holds the internal client configuration.
type options struct {
	baseURL             string
	httpClient          *http.Client
	logger              zerolog.Logger
	expectTimeout       time.Duration
	sweepInterval       time.Duration
	listenKeepalive     time.Duration
	listenRetryInterval time.Duration
	serverTimeoutMargin time.Duration
}

// defaultOptions returns the default client configuration.
func defaultOptions() *options {
	return &options{
		logger:              *logging.Default(),
		expectTimeout:       constants.DefaultExpectTimeout,
		sweepInterval:       constants.ExpectSweepInterval,
		listenKeepalive:     constants.ListenKeepalive,
		listenRetryInterval: constants.ListenRetryInterval,
		serverTimeoutMargin: constants.ServerTimeoutMargin,
	}
}

// apply applies the given options, returning an error if any option fails.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithBaseURL sets the base URL of the qToggle API, e.g.
// "http://192.168.1.2/api". Required.
func WithBaseURL(baseURL string) Option {
	return func(o *options) error {
		if baseURL == "" {
			return &errors.ValidationError{
				Field:   "baseURL",
				Value:   "",
				Message: "base URL cannot be empty",
			}
		}
		o.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client. The client should not carry
// an overall request timeout, since listen requests are held open for
// the keepalive interval.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		if client == nil {
			return &errors.ValidationError{
				Field:   "httpClient",
				Value:   "nil",
				Message: "HTTP client cannot be nil",
			}
		}
		o.httpClient = client
		return nil
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithExpectTimeout sets the default timeout applied when ExpectEvent is
// called with a non-positive timeout.
func WithExpectTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "expectTimeout",
				Value:   d.String(),
				Message: "expect timeout must be positive",
			}
		}
		o.expectTimeout = d
		return nil
	}
}

// WithSweepInterval sets how often expired expectations are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "sweepInterval",
				Value:   d.String(),
				Message: "sweep interval must be positive",
			}
		}
		o.sweepInterval = d
		return nil
	}
}

// WithListenKeepalive sets how long the server holds a listen request
// open before returning an empty keep-alive response.
func WithListenKeepalive(d time.Duration) Option {
	return func(o *options) error {
		if d < time.Second {
			return &errors.ValidationError{
				Field:   "listenKeepalive",
				Value:   d.String(),
				Message: fmt.Sprintf("listen keepalive must be at least %s", time.Second),
			}
		}
		o.listenKeepalive = d
		return nil
	}
}

// WithListenRetryInterval sets the delay before reconnecting once listen
// requests have failed repeatedly.
func WithListenRetryInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "listenRetryInterval",
				Value:   d.String(),
				Message: "listen retry interval must be positive",
			}
		}
		o.listenRetryInterval = d
		return nil
	}
}

// WithServerTimeoutMargin sets the extra time granted to the server
// beyond the keepalive interval before a listen request is abandoned.
func WithServerTimeoutMargin(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "serverTimeoutMargin",
				Value:   d.String(),
				Message: "server timeout margin must be positive",
			}
		}
		o.serverTimeoutMargin = d
		return nil
	}
}
