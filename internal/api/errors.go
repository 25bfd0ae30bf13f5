package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates the server rejected the credential.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the tracker, with the server's error
// messages normalized into one list whichever shape the body used.
type Error struct {
	Status   int
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return http.StatusText(e.Status)
	}
	return strings.Join(e.Messages, ", ")
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match any 401 response.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// newError normalizes an error body. Servers answer with either
// {error: "..."} or {errors: ["...", ...]}; both become Messages.
func newError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}
	if len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if payload.Error != "" {
		apiErr.Messages = append(apiErr.Messages, payload.Error)
	}
	apiErr.Messages = append(apiErr.Messages, payload.Errors...)
	return apiErr
}
