package retry

import (
	"time"

	"github.com/google/uuid"

	"github.com/forgeflow/autoland/internal/resilience/classify"
)

// AttemptRecord is one entry in the append-only audit trail of a retried
// operation. Attempt indexes are zero-based.
type AttemptRecord struct {
	Attempt        int
	ErrorMessage   string
	Delay          time.Duration
	Classification classify.Classification
	Timestamp      time.Time
}

// Context traces a single logical operation through its retry loop. It is
// threaded explicitly through every attempt rather than captured in
// closures, so hooks and the operation itself can inspect the full history.
type Context struct {
	ID                string
	Attempt           int
	MaxRetries        int
	FirstAttemptAt    time.Time
	History           []AttemptRecord
	PermanentlyFailed bool
	FinalError        error
}

// NewContext creates the trace for one operation invocation.
func NewContext(maxRetries int) *Context {
	return &Context{
		ID:             uuid.NewString(),
		MaxRetries:     maxRetries,
		FirstAttemptAt: time.Now(),
	}
}

// Elapsed returns the time since the first attempt started.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.FirstAttemptAt)
}

func (c *Context) record(err error, delay time.Duration, cls classify.Classification) {
	c.History = append(c.History, AttemptRecord{
		Attempt:        c.Attempt,
		ErrorMessage:   err.Error(),
		Delay:          delay,
		Classification: cls,
		Timestamp:      time.Now(),
	})
}

func (c *Context) fail(err error) {
	c.PermanentlyFailed = true
	c.FinalError = err
}
