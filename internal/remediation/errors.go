package remediation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotRunning is returned when an operation requires a running execution
// and the execution already reached a terminal state.
var ErrNotRunning = errors.New("execution is not running")

// ErrWorkflowDisabled is returned when a disabled workflow is triggered.
var ErrWorkflowDisabled = errors.New("workflow is disabled")

// ValidationError is one structural problem in a workflow definition.
type ValidationError struct {
	StepID  string `json:"step_id,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %s: %s", e.StepID, e.Message)
	}
	return e.Message
}

// InvalidWorkflowError carries every structural error found during compile.
// Compile refuses to produce a state machine while any remain.
type InvalidWorkflowError struct {
	WorkflowID string
	Errors     []ValidationError
}

func (e *InvalidWorkflowError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("workflow %s invalid: %s", e.WorkflowID, strings.Join(msgs, "; "))
}
