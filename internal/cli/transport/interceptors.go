package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	// AuthorizationHeader carries the bearer credential
	AuthorizationHeader = "Authorization"
	// RequestIDHeader correlates client and server logs
	RequestIDHeader = "X-Request-ID"

	bearerPrefix = "Bearer "
)

// TokenSource yields the current bearer token, "" when absent
type TokenSource interface {
	GetToken() string
}

// BearerAuth attaches the token read from src on every call. When no token is
// present the header is removed, so a stale default header can never leak.
func BearerAuth(src TokenSource) RequestInterceptor {
	return func(req *http.Request) error {
		if token := src.GetToken(); token != "" {
			req.Header.Set(AuthorizationHeader, BearerValue(token))
		} else {
			req.Header.Del(AuthorizationHeader)
		}
		return nil
	}
}

// RequestID stamps a ULID request id unless the caller already set one
func RequestID() RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, ulid.Make().String())
		}
		return nil
	}
}

// BearerValue formats a token for the Authorization header
func BearerValue(token string) string {
	return fmt.Sprintf("%s%s", bearerPrefix, token)
}

// BearerToken extracts the token a request was sent with, "" when none
func BearerToken(req *http.Request) string {
	if req == nil {
		return ""
	}
	header := req.Header.Get(AuthorizationHeader)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, bearerPrefix)
}
