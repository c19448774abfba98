package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrNoToken is returned by callers that require a stored credential before
// issuing a request.
var ErrNoToken = errors.New("no authentication token found")

// APIError is a non-2xx response from the groundwater API. Error returns the
// normalised detail message as a flat string.
type APIError struct {
	StatusCode int
	Status     string // status text, e.g. "Not Found"
	Detail     string
	// FromBody is true when Detail came from the response body rather than
	// the status text.
	FromBody bool
}

func (e *APIError) Error() string {
	return e.Detail
}

// TransportError wraps a failure to send a request or receive a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorBody is the backend's JSON error envelope. Detail is kept raw because
// the server sends either a string or a structured validation report.
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns Detail as a display string: strings verbatim, any other
// JSON value compacted. An absent or null detail yields fallback.
func (b ErrorBody) Message(fallback string) (string, bool) {
	raw := bytes.TrimSpace(b.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

// NewAPIError builds an APIError from a status line and the raw response body.
func NewAPIError(statusCode int, status string, body []byte) *APIError {
	text := StatusText(statusCode, status)
	apiErr := &APIError{StatusCode: statusCode, Status: text, Detail: text}

	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}
	apiErr.Detail, apiErr.FromBody = eb.Message(text)
	return apiErr
}

// StatusText extracts the reason phrase from an http.Response.Status such as
// "404 Not Found", falling back to the standard text for code.
func StatusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text != "" {
		return text
	}
	if text = http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}
