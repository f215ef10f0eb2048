package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrTransport marks a failure of the fetch bridge itself.
	ErrTransport = errors.New("transport failure")

	// ErrItem marks one element of a page that could not be normalized.
	ErrItem = errors.New("malformed item")

	// ErrRateLimited is returned when the endpoint is cooling down for longer
	// than the client is willing to wait.
	ErrRateLimited = errors.New("endpoint rate limited")
)

// errorClass categorizes Twitter API error responses for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errRateLimited              // 88: rate limit exceeded
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized
	errInternal                 // 131: Twitter internal error
	errOther                    // any other code
)

// APIError is an upstream {"errors":[...]} payload.
type APIError struct {
	Code    int
	Message string
	class   errorClass
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter API error %d: %s", e.Code, e.Message)
}

// RateLimited reports whether the error signals quota exhaustion.
func (e *APIError) RateLimited() bool { return e.class == errRateLimited }

// authFailure reports whether the credentials used for the call are unusable.
func (e *APIError) authFailure() bool {
	switch e.class {
	case errSuspended, errLocked, errCSRF, errAuthExpired, errBlocked, errNotAuthorized:
		return true
	}
	return false
}

// classifyError inspects a response body for known Twitter error codes.
// It returns nil when the body carries no error list.
func classifyError(body []byte) *APIError {
	var errResp struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	// Timeline pages are JSON arrays; only objects can carry an error list.
	if len(body) == 0 || firstByte(body) != '{' {
		return nil
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return nil
	}

	e := errResp.Errors[0]
	apiErr := &APIError{Code: e.Code, Message: e.Message, class: errOther}
	switch e.Code {
	case 88:
		apiErr.class = errRateLimited
	case 64:
		apiErr.class = errSuspended
	case 326:
		apiErr.class = errLocked
	case 353:
		apiErr.class = errCSRF
	case 32:
		apiErr.class = errAuthExpired
	case 161:
		apiErr.class = errBlocked
	case 179, 219:
		apiErr.class = errNotAuthorized
	case 131:
		apiErr.class = errInternal
	}
	return apiErr
}

func firstByte(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}

// HTTPError is a non-2xx HTTP response seen by a bridge.
type HTTPError struct {
	Status int
	Body   []byte
	Reset  time.Time
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, truncateBytes(e.Body, 200))
}

func (e *HTTPError) Unwrap() error { return ErrTransport }

// StructuralError reports a well-formed response of the wrong shape.
// It is never retried.
type StructuralError struct {
	Endpoint Kind
	Reason   string
	Payload  json.RawMessage
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: result JSON structure error: %s", e.Endpoint, e.Reason)
}

// RetryExhaustedError is returned once every attempt for a call has failed.
// Payload holds the last upstream body, if any, for diagnostics.
type RetryExhaustedError struct {
	Endpoint Kind
	Attempts int
	Last     error
	Payload  json.RawMessage
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
