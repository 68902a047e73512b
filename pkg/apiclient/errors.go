package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is an error response from the server. The server answers with
// RFC 7807 problem details; other bodies end up in Detail verbatim.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`

	body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Title, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Title, e.StatusCode)
}

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsBadRequest reports a 400.
func (e *APIError) IsBadRequest() bool { return e.StatusCode == http.StatusBadRequest }

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{}
	if json.Unmarshal(body, apiErr) != nil || apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode)
		apiErr.Detail = string(body)
	}
	apiErr.StatusCode = resp.StatusCode
	apiErr.body = body
	return apiErr
}
