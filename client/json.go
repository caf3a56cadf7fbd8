package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is a non-2xx application-level response from the backend. It is
// returned by the JSON helpers; the pipeline itself never converts auth
// failures into APIErrors (those surface as sentinel errors).
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
	Reason     string `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	if msg := e.message(); msg != "" {
		return msg
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	case e.Reason != "":
		return e.Reason
	}
	return ""
}

// ErrorMessage extracts a user-presentable message from any error produced
// by the client, preferring the backend's detail/message/error fields.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// GetJSON issues a GET and decodes the JSON response into out (may be nil).
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// PutJSON issues a PUT with a JSON body and decodes the response into out.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// DeleteJSON issues a DELETE and decodes the JSON response into out (may be nil).
func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "[Client.doJSON] marshalling request body")
		}
		// bytes.Reader bodies get GetBody set by NewRequest, which the
		// expiry retry relies on to replay the request.
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "[Client.doJSON] building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client.doJSON] decoding response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		// Best effort: an HTML or plain-text error body still yields the
		// status text via APIError.Error.
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
