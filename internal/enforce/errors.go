package enforce

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"auditflow/internal/pipeline"
)

// ErrUnboundOperation means a guard was asked to run an operation with no
// bound specification. The startup registry pass makes this unreachable for
// registered types; hitting it at runtime is a wiring bug, not a compliance
// outcome.
var ErrUnboundOperation = errors.New("operation has no bound audit specification")

// ComplianceViolation replaces an operation's result when the call returned
// normally but its emitted event sequence satisfies no alternative of the
// bound specification. Callers must treat the operation as having failed
// outright; the engine never downgrades this to a log entry and never
// retries.
type ComplianceViolation struct {
	Operation    string
	InvocationID uuid.UUID
	Spec         pipeline.Set
	Emitted      []pipeline.Symbol
}

func (e *ComplianceViolation) Error() string {
	return fmt.Sprintf("compliance violation in %s (invocation %s): emitted %v, required %s",
		e.Operation, e.InvocationID, e.Emitted, e.Spec)
}
