package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ignite/adpilot/internal/domain"
)

// Sentinel errors for request validation.
var (
	ErrMissingOrganization = errors.New("organization id is required")
)

// InsufficientDataError reports a window with no metric rows for the
// organization. It is not retriable: re-running without new data cannot
// succeed.
type InsufficientDataError struct {
	OrgID  string
	Window domain.DateRange
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: no metric records for org %s in %s", e.OrgID, e.Window)
}

// StageTimeoutError reports a stage exceeding its latency budget. Retriable:
// the pipeline is pure, so re-running with fresh input is the recovery path.
// The run never returns partial results alongside this error.
type StageTimeoutError struct {
	Stage  string
	Budget time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s exceeded latency budget %s", e.Stage, e.Budget)
}

// Retriable marks the error as safe to retry.
func (e *StageTimeoutError) Retriable() bool { return true }

// IsRetriable reports whether the caller may retry the run as-is.
func IsRetriable(err error) bool {
	var timeout *StageTimeoutError
	return errors.As(err, &timeout)
}
