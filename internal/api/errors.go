package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure for the caller's recovery policy.
type Kind int

const (
	KindNetwork     Kind = iota // transport failure, session unverifiable
	KindAuth                    // 401, caller should force logout
	KindPermission              // 403, surface but do not logout
	KindValidation              // 400, field-level detail available
	KindRateLimited             // 429, back off before retrying
	KindNotFound                // 404
	KindHTTP                    // any other non-2xx, or success:false envelope
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "authentication"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindHTTP:
		return "http"
	default:
		return ""
	}
}

// Error is the typed failure value returned for every non-successful API
// interaction. Message is always human-readable; Fields is populated for
// validation failures when the backend supplies per-field messages.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// IsKind reports whether err is an [*Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsAuth reports whether err is an authentication (401) failure.
func IsAuth(err error) bool { return IsKind(err, KindAuth) }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return IsKind(err, KindNetwork) }

// IsRateLimited reports whether err is a 429 failure.
func IsRateLimited(err error) bool { return IsKind(err, KindRateLimited) }

// envelope is the backend's fixed response shape.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// classify maps a non-2xx response to a typed error, extracting the
// envelope message when the body parses and falling back to a generic
// message when it does not.
func classify(status int, body []byte) *Error {
	var env envelope
	message := ""
	var fields map[string]string
	if err := json.Unmarshal(body, &env); err == nil {
		message = env.Message
		fields = env.Errors
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "request failed"
	}

	e := &Error{Status: status, Message: message, Fields: fields}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	case http.StatusForbidden:
		e.Kind = KindPermission
	case http.StatusBadRequest:
		e.Kind = KindValidation
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case http.StatusNotFound:
		e.Kind = KindNotFound
	default:
		e.Kind = KindHTTP
	}
	return e
}
