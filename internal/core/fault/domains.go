package fault

// Domain constructors. Each populates recovery suggestions that make sense
// for the tag so callers get actionable errors without extra wiring.

// GitHub creates a fault for the Git-hosting service.
func GitHub(code Code, message string) *Fault {
	f := New(DomainGitHub, code, message)
	switch code {
	case CodeRateLimit:
		f.WithRecovery("wait for the rate-limit window to reset", true)
	case CodeNetworkError, CodeTimeout:
		f.WithRecovery("retry after backoff", true)
	case CodeAuthFailed, CodePermissionDenied:
		f.Severity = SeverityCritical
		f.WithRecovery("verify the hosting-service token and its scopes", false)
	}
	return f
}

// Claude creates a fault for the remote reasoning service.
func Claude(code Code, message string) *Fault {
	f := New(DomainClaude, code, message)
	switch code {
	case CodeRateLimit:
		f.WithRecovery("wait for the rate-limit window to reset", true)
	case CodeTimeout:
		f.WithRecovery("retry with a longer timeout", true)
	case CodeAuthFailed:
		f.Severity = SeverityCritical
		f.WithRecovery("verify the reasoning-service API key", false)
	}
	return f
}

// Config creates a fault for configuration problems. Always terminal.
func Config(code Code, message string) *Fault {
	f := New(DomainConfig, code, message)
	f.Severity = SeverityCritical
	f.Retryable = false
	f.WithRecovery("fix the configuration and restart", false)
	return f
}

// Execution creates a fault for task-execution failures.
func Execution(code Code, message string) *Fault {
	return New(DomainExecution, code, message)
}

// Analyzer creates a fault for analysis problems. These never abort a run.
func Analyzer(code Code, message string) *Fault {
	f := New(DomainAnalyzer, code, message)
	f.Severity = SeverityWarning
	return f
}

// Generic creates a fault with no specific domain.
func Generic(code Code, message string) *Fault {
	return New(DomainGeneric, code, message)
}
