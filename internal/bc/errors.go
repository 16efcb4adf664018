package bc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrTokenFetch wraps every failure while obtaining an access token.
	ErrTokenFetch = errors.New("error getting token")
	// ErrUnexpectedShape is returned when a 2xx response body does not match the expected schema.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// StatusError is returned when Business Central or the token endpoint answers
// with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("bc %s: HTTP error! status: %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("bc %s: HTTP error! status: %d with message: %s", e.Endpoint, e.StatusCode, e.Status)
}

// newStatusError builds a StatusError from resp, keeping at most 512 bytes of body.
func newStatusError(endpoint string, resp *http.Response, body []byte) *StatusError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     text,
		Body:       string(body),
	}
}
