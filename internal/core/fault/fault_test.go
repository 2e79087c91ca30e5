package fault

import (
	"errors"
	"testing"
	"time"
)

func TestCode_DefaultRetryable(t *testing.T) {
	tests := []struct {
		code   Code
		expect bool
	}{
		{CodeRateLimit, true},
		{CodeNetworkError, true},
		{CodeTimeout, true},
		{CodeCircuitOpen, true},
		{CodeDBConnection, true},
		{CodeAuthFailed, false},
		{CodeValidationFailed, false},
		{CodeNotFound, false},
		{CodePermissionDenied, false},
		{CodeAborted, false},
		{CodeUnknown, false},
	}

	for _, tt := range tests {
		if got := tt.code.DefaultRetryable(); got != tt.expect {
			t.Errorf("DefaultRetryable(%s) = %v, want %v", tt.code, got, tt.expect)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	f := New(DomainGitHub, CodeRateLimit, "rate limit exceeded")

	if !f.Retryable {
		t.Error("rate-limit fault should default to retryable")
	}
	if f.Severity != SeverityTransient {
		t.Errorf("expected transient severity, got %s", f.Severity)
	}
	if f.Timestamp.IsZero() {
		t.Error("fault should be timestamped")
	}

	f = New(DomainGitHub, CodeAuthFailed, "bad token")
	if f.Retryable {
		t.Error("auth fault should not be retryable")
	}
	if f.Severity != SeverityError {
		t.Errorf("expected error severity, got %s", f.Severity)
	}
}

func TestFault_Overrides(t *testing.T) {
	f := Generic(CodeCircuitOpen, "circuit open").WithRetryable(false)
	if f.Retryable {
		t.Error("explicit override should win over the code table")
	}
	if !CodeCircuitOpen.DefaultRetryable() {
		t.Error("circuit-open code itself stays in the retryable table")
	}
}

func TestFault_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	f := GitHub(CodeNetworkError, "request failed").WithCause(cause)

	if !errors.Is(f, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}

	var target *Fault
	if !errors.As(error(f), &target) {
		t.Error("errors.As should match *Fault")
	}
}

func TestFault_Error(t *testing.T) {
	f := Claude(CodeTimeout, "query timed out")
	if got, want := f.Error(), "TIMEOUT: query timed out"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	f.WithCause(errors.New("deadline exceeded"))
	if got, want := f.Error(), "TIMEOUT: query timed out: deadline exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDomainConstructors_Recovery(t *testing.T) {
	tests := []struct {
		name      string
		fault     *Fault
		automatic bool
	}{
		{"github rate limit", GitHub(CodeRateLimit, "x"), true},
		{"github auth", GitHub(CodeAuthFailed, "x"), false},
		{"claude timeout", Claude(CodeTimeout, "x"), true},
		{"config validation", Config(CodeValidationFailed, "x"), false},
	}

	for _, tt := range tests {
		if len(tt.fault.Recovery) == 0 {
			t.Errorf("%s: expected a recovery suggestion", tt.name)
			continue
		}
		if tt.fault.Recovery[0].Automatic != tt.automatic {
			t.Errorf("%s: automatic = %v, want %v", tt.name, tt.fault.Recovery[0].Automatic, tt.automatic)
		}
	}
}

func TestConfig_AlwaysTerminal(t *testing.T) {
	f := Config(CodeValidationFailed, "missing base branch")
	if f.Retryable {
		t.Error("config faults are never retryable")
	}
	if f.Severity != SeverityCritical {
		t.Errorf("expected critical severity, got %s", f.Severity)
	}
}

func TestFault_Context(t *testing.T) {
	f := Generic(CodeCircuitOpen, "open").
		WithContext("operation", "claude.query").
		WithContext("consecutive_failures", 5).
		WithRetryAfter(1500 * time.Millisecond)

	if f.Context["operation"] != "claude.query" {
		t.Errorf("context operation = %v", f.Context["operation"])
	}
	if f.RetryAfter != 1500*time.Millisecond {
		t.Errorf("retry after = %v", f.RetryAfter)
	}
}
