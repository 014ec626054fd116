package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rajtan/qtoggleserver/pkg/errors"
	"github.com/rajtan/qtoggleserver/pkg/logging"
)

// apiErrorBody is the error shape the qToggle API returns on failures,
// e.g. {"error": "no-such-function"}.
type apiErrorBody struct {
	Error string `json:"error"`
}

// DecodeResponse decodes a JSON response into the target structure.
// Non-2xx responses are turned into an APIError carrying the server's error
// code when the body provides one. A nil target discards the body.
func DecodeResponse(resp *http.Response, endpoint string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("endpoint", endpoint).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &errors.APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
		var errBody apiErrorBody
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			apiErr.Code = errBody.Error
		}
		return apiErr
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
