package clubapi

import (
	"fmt"
	"strings"
)

// ErrorType classifies why a backend call failed.
type ErrorType string

const (
	// ErrorTypeNetwork covers transport-level failures: DNS, refused
	// connections, timeouts before any response arrived.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeServer covers non-2xx responses from the backend.
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeParse covers 2xx responses whose body is not the JSON we
	// expect, including HTML pages from a misconfigured base URL.
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeUnknown covers misconfiguration detected before a request
	// could be made.
	ErrorTypeUnknown ErrorType = "unknown"
)

// APIError is the single error shape every backend call funnels into.
// Status is zero when no HTTP response was received. Body is truncated.
type APIError struct {
	Type    ErrorType
	Message string
	Status  int
	URL     string
	Body    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status=%d)", e.Status)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	return b.String()
}

// IsType reports whether err is an APIError of the given classification.
func IsType(err error, t ErrorType) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Type == t
}

func AsAPIError(err error) (*APIError, bool) {
	for err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
