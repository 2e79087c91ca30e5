// Package fault defines the structured error type shared across the system.
//
// Every error surfaced by the resilience and landing layers is a *Fault: a
// tagged value carrying the owning domain, a stable code, a severity, an
// explicit retryable flag, timestamped free-form context, an optional cause,
// and zero or more recovery suggestions. Domain constructors populate
// sensible defaults per tag; callers override fields with the With* helpers.
package fault

import (
	"fmt"
	"time"
)

// Domain identifies which part of the system an error belongs to.
type Domain string

const (
	DomainGitHub    Domain = "github"
	DomainClaude    Domain = "claude"
	DomainConfig    Domain = "config"
	DomainExecution Domain = "execution"
	DomainAnalyzer  Domain = "analyzer"
	DomainGeneric   Domain = "generic"
)

// Severity classifies how bad a fault is for the overall run.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityTransient Severity = "transient"
	SeverityError     Severity = "error"
	SeverityWarning   Severity = "warning"
)

// Code is a stable machine-readable error code.
type Code string

const (
	// Retryable by default.
	CodeRateLimit    Code = "RATE_LIMIT"
	CodeNetworkError Code = "NETWORK_ERROR"
	CodeTimeout      Code = "TIMEOUT"
	CodeCircuitOpen  Code = "CIRCUIT_BREAKER_OPEN"
	CodeDBConnection Code = "DB_CONNECTION_FAILED"

	// Terminal by default.
	CodeAuthFailed       Code = "AUTH_FAILED"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeAborted          Code = "OPERATION_ABORTED"
	CodeUnknown          Code = "UNKNOWN"
)

// retryableCodes is the fixed table of codes that are safe to retry.
var retryableCodes = map[Code]bool{
	CodeRateLimit:    true,
	CodeNetworkError: true,
	CodeTimeout:      true,
	CodeCircuitOpen:  true,
	CodeDBConnection: true,
}

var terminalCodes = map[Code]bool{
	CodeAuthFailed:       true,
	CodeValidationFailed: true,
	CodeNotFound:         true,
	CodePermissionDenied: true,
	CodeAborted:          true,
}

// DefaultRetryable reports whether the code is in the known-retryable table.
func (c Code) DefaultRetryable() bool {
	return retryableCodes[c]
}

// Known reports whether the code appears in either fixed table. Unknown
// codes carry no classification authority.
func (c Code) Known() bool {
	return retryableCodes[c] || terminalCodes[c]
}

// RecoveryAction is a human-readable suggestion attached to a fault.
type RecoveryAction struct {
	Description string
	Automatic   bool
}

// Fault is the structured error used across the system.
type Fault struct {
	Domain     Domain
	Code       Code
	Severity   Severity
	Retryable  bool
	Message    string
	Context    map[string]any
	Timestamp  time.Time
	Cause      error
	Recovery   []RecoveryAction
	RetryAfter time.Duration // optional server-provided wait hint, 0 = none
}

// New creates a fault with the default severity and retryable flag for code.
func New(domain Domain, code Code, message string) *Fault {
	retryable := code.DefaultRetryable()
	severity := SeverityError
	if retryable {
		severity = SeverityTransient
	}
	return &Fault{
		Domain:    domain,
		Code:      code,
		Severity:  severity,
		Retryable: retryable,
		Message:   message,
		Context:   map[string]any{},
		Timestamp: time.Now(),
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(domain Domain, code Code, format string, args ...any) *Fault {
	return New(domain, code, fmt.Sprintf(format, args...))
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unwrap returns the causing error, if any.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// IsRetryable reports the fault's explicit retryable flag.
func (f *Fault) IsRetryable() bool {
	return f.Retryable
}

// WithContext adds a key/value pair to the fault context.
func (f *Fault) WithContext(key string, value any) *Fault {
	f.Context[key] = value
	return f
}

// WithCause attaches the underlying error.
func (f *Fault) WithCause(err error) *Fault {
	f.Cause = err
	return f
}

// WithSeverity overrides the default severity.
func (f *Fault) WithSeverity(s Severity) *Fault {
	f.Severity = s
	return f
}

// WithRetryable overrides the code-derived retryable flag.
func (f *Fault) WithRetryable(retryable bool) *Fault {
	f.Retryable = retryable
	return f
}

// WithRetryAfter records a server-provided wait hint.
func (f *Fault) WithRetryAfter(d time.Duration) *Fault {
	f.RetryAfter = d
	return f
}

// WithRecovery appends a recovery suggestion.
func (f *Fault) WithRecovery(description string, automatic bool) *Fault {
	f.Recovery = append(f.Recovery, RecoveryAction{Description: description, Automatic: automatic})
	return f
}
