// Package classify turns arbitrary failures into a normalized classification.
//
// Classification follows a fixed priority table, evaluated top to bottom with
// early exit:
//
//  1. structured fault code (authoritative; the fault's own retryable flag)
//  2. HTTP status carried by the error
//  3. low-level network error code
//  4. message-pattern heuristics
//  5. an explicit IsRetryable flag on the error value
//
// Anything else is unknown and not retryable.
package classify

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/forgeflow/autoland/internal/core/fault"
)

// Kind identifies which classification rule matched.
type Kind string

const (
	KindStructured Kind = "structured"
	KindHTTP       Kind = "http"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// Classification is the normalized verdict for a failure.
// RetryAfter is a server-provided wait hint; zero means none.
type Classification struct {
	Kind       Kind
	Retryable  bool
	RetryAfter time.Duration
}

// HTTPError is the canonical shape client glue wraps raw HTTP failures into.
type HTTPError struct {
	Status  int
	Headers http.Header
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return "HTTP " + strconv.Itoa(e.Status)
	}
	return "HTTP " + strconv.Itoa(e.Status) + ": " + e.Message
}

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.Status }

// HTTPHeaders returns the response headers.
func (e *HTTPError) HTTPHeaders() http.Header { return e.Headers }

// networkCodeNames are matched case-insensitively against the error text.
var networkCodeNames = []string{
	"ECONNRESET", "ETIMEDOUT", "ENOTFOUND", "ECONNREFUSED", "EPIPE",
}

var networkErrnos = []syscall.Errno{
	syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.ECONNREFUSED, syscall.EPIPE,
}

// Classify evaluates the rule table against err.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown}
	}

	// 1. Structured fault with a known code. The fault's retryable flag is
	// authoritative: constructors default it from the code table, and an
	// explicit override at the raise site wins.
	var f *fault.Fault
	if errors.As(err, &f) && f.Code.Known() {
		return Classification{
			Kind:       KindStructured,
			Retryable:  f.Retryable,
			RetryAfter: RetryAfterHint(err),
		}
	}

	// 2. HTTP status carried by the error chain.
	if status, ok := httpStatus(err); ok {
		return Classification{
			Kind:       KindHTTP,
			Retryable:  IsHTTPStatusRetryable(status),
			RetryAfter: RetryAfterHint(err),
		}
	}

	// 3. Network error codes.
	if isNetworkError(err) {
		return Classification{Kind: KindNetwork, Retryable: true}
	}

	// 4. Message patterns. Terminal patterns win over transient ones.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unauthorized") || strings.Contains(msg, "auth") {
		return Classification{Kind: KindUnknown, Retryable: false}
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "network") {
		return Classification{Kind: KindUnknown, Retryable: true}
	}

	// 5. Explicit flag on the error value.
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return Classification{Kind: KindUnknown, Retryable: r.IsRetryable()}
	}

	return Classification{Kind: KindUnknown, Retryable: false}
}

// IsHTTPStatusRetryable reports whether an HTTP status is worth retrying:
// 408, 429, and every 5xx.
func IsHTTPStatusRetryable(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

// RetryAfterHint extracts a server-provided wait hint from the error chain.
// Priority: an explicit fault hint, then a Retry-After header (numeric
// seconds), then an x-ratelimit-reset header (absolute unix seconds converted
// to a relative delay). Hints in the past yield zero.
func RetryAfterHint(err error) time.Duration {
	var f *fault.Fault
	if errors.As(err, &f) && f.RetryAfter > 0 {
		return f.RetryAfter
	}

	var h interface{ HTTPHeaders() http.Header }
	if !errors.As(err, &h) {
		return 0
	}
	headers := h.HTTPHeaders()
	if headers == nil {
		return 0
	}

	if v := headers.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	if v := headers.Get("x-ratelimit-reset"); v != "" {
		if unix, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if wait := time.Until(time.Unix(unix, 0)); wait > 0 {
				return wait
			}
		}
	}

	return 0
}

func httpStatus(err error) (int, bool) {
	var s interface{ HTTPStatus() int }
	if errors.As(err, &s) {
		return s.HTTPStatus(), true
	}

	// Faults with an unknown code may still carry a status in context.
	var f *fault.Fault
	if errors.As(err, &f) {
		if status, ok := f.Context["http_status"].(int); ok {
			return status, true
		}
	}

	return 0, false
}

func isNetworkError(err error) bool {
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	upper := strings.ToUpper(err.Error())
	for _, name := range networkCodeNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}
