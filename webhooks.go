package qtoggleserver

import (
	"context"

	"github.com/rajtan/qtoggleserver/pkg/constants"
	"github.com/rajtan/qtoggleserver/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Webhooks = (*client)(nil)

// Webhooks reads and writes the server's webhook configuration.
type Webhooks interface {

	// Webhooks fetches the current webhook configuration.
	Webhooks(ctx context.Context) (*WebhookParams, error)

	// SetWebhooks replaces the webhook configuration.
	SetWebhooks(ctx context.Context, params *WebhookParams) error
}

// WebhookParams is the server's webhook push configuration. When
// enabled, the server delivers events on its own to
// scheme://host:port/path instead of waiting to be polled.
type WebhookParams struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Scheme  string `json:"scheme" yaml:"scheme"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`

	// Timeout is the per-delivery timeout in seconds.
	Timeout int `json:"timeout" yaml:"timeout"`

	// Retries is how many times a failed delivery is reattempted.
	Retries int `json:"retries" yaml:"retries"`
}

// Webhooks fetches the server's current webhook configuration.
func (c *client) Webhooks(ctx context.Context) (*WebhookParams, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	var params WebhookParams
	if err := c.api.GetJSON(ctx, "/webhooks", nil, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// SetWebhooks replaces the server's webhook configuration. The call is a
// plain pass-through; the server validates the parameters.
func (c *client) SetWebhooks(ctx context.Context, params *WebhookParams) error {
	if params == nil {
		return &errors.ValidationError{
			Field:   "params",
			Value:   "nil",
			Message: "webhook params cannot be nil",
		}
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.api.PatchJSON(ctx, "/webhooks", params, nil)
}

// callContext bounds a plain API call with the default HTTP timeout when
// the caller did not set a deadline of its own.
func (c *client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, constants.DefaultHTTPTimeout)
}
