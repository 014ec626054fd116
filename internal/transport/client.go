// Package transport provides the HTTP plumbing for qToggle API calls.
// It resolves paths against the server base URL, applies common headers,
// and decodes JSON responses into API errors or target structures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rajtan/qtoggleserver/pkg/constants"
	"github.com/rajtan/qtoggleserver/pkg/errors"
)

// Client provides HTTP client functionality against a qToggle server.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a new transport client for the given server base URL.
// If httpClient is nil a default client is used. The default client carries
// no overall timeout because listen requests are held open by the server;
// callers bound each request through its context instead.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.WrapValidation("base_url", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.NewValidationError("base_url", baseURL, "scheme must be http or https")
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: constants.DialTimeout,
				}).DialContext,
				MaxIdleConns:        constants.MaxIdleConnections,
				MaxIdleConnsPerHost: constants.MaxIdleConnections,
			},
		}
	}

	return &Client{
		base: base,
		http: httpClient,
	}, nil
}

// BaseURL returns the resolved server base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get performs a GET request against the given API path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

// Patch performs a PATCH request with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

// GetJSON performs a GET request and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, path, target)
}

// PatchJSON performs a PATCH request and decodes the JSON response into
// target. A nil target discards the response body after the status check.
func (c *Client) PatchJSON(ctx context.Context, path string, body, target any) error {
	resp, err := c.Patch(ctx, path, body)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, path, target)
}

// newRequest builds a request for the given path relative to the base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request body", err)
		}
		reader = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	if err != nil {
		return nil, errors.WrapAPI(path, 0, err)
	}

	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do executes the request and normalizes transport-level failures.
func (c *Client) do(req *http.Request, path string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(path, 0, err)
	}
	return resp, nil
}
