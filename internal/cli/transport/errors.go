package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call
type Kind int

const (
	// KindRequest means the request could not be built or was refused before sending
	KindRequest Kind = iota + 1
	// KindConnectivity means the request was sent but no response arrived
	KindConnectivity
	// KindAuthInvalid means the server answered 401
	KindAuthInvalid
	// KindResponse means the server answered with another error status
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindConnectivity:
		return "connectivity"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against *Error
var (
	ErrRequest      = errors.New("request could not be sent")
	ErrConnectivity = errors.New("no response from the server, check your connection and retry")
	ErrAuthInvalid  = errors.New("authentication required")
	ErrResponse     = errors.New("server returned an error")
)

// Error is the normalized failure of an API call
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthInvalid, KindResponse:
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s %s failed: %s: %v", e.Method, e.Path, e.Message, e.Err)
		}
		return fmt.Sprintf("%s %s failed: %s", e.Method, e.Path, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRequest:
		return e.Kind == KindRequest
	case ErrConnectivity:
		return e.Kind == KindConnectivity
	case ErrAuthInvalid:
		return e.Kind == KindAuthInvalid
	case ErrResponse:
		return e.Kind == KindResponse
	}
	return false
}

// KindOf returns the kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsAuthInvalid reports whether err is a 401 from the API
func IsAuthInvalid(err error) bool {
	return errors.Is(err, ErrAuthInvalid)
}

func requestError(method, path string, err error) *Error {
	return &Error{
		Kind:    KindRequest,
		Method:  method,
		Path:    path,
		Message: ErrRequest.Error(),
		Err:     err,
	}
}

func connectivityError(method, path string, err error) *Error {
	return &Error{
		Kind:    KindConnectivity,
		Method:  method,
		Path:    path,
		Message: ErrConnectivity.Error(),
		Err:     err,
	}
}

func statusError(method, path string, status int, body []byte) *Error {
	kind := KindResponse
	if status == http.StatusUnauthorized {
		kind = KindAuthInvalid
	}

	message := messageFromBody(body)
	if message == "" {
		message = http.StatusText(status)
	}

	return &Error{
		Kind:    kind,
		Method:  method,
		Path:    path,
		Status:  status,
		Message: message,
	}
}

// messageFromBody extracts "message" or "error" from a structured error body.
// Both plain strings and lists of strings are accepted.
func messageFromBody(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return ""
}
