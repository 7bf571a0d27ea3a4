package remediation

import (
	"net/http"
	"time"

	"github.com/verdane/fleetops/internal/model"
)

// DefaultStepTimeout applies when a step declares no timeout.
const DefaultStepTimeout = 300 * time.Second

// CompiledStep is the engine-facing form of one step.
type CompiledStep struct {
	ID               string
	Name             string
	Type             string
	Config           model.StepConfig
	Timeout          time.Duration
	OnSuccess        string
	OnFailure        string
	OnTrue           string
	OnFalse          string
	Retry            *model.RetryPolicy
	RollbackScriptID string
}

// Next returns the id of the step to run after this result, empty at a sink.
func (s *CompiledStep) Next(result *model.StepResult) string {
	if s.Type == model.StepCondition {
		if result.ConditionResult != nil && *result.ConditionResult {
			return s.OnTrue
		}
		return s.OnFalse
	}
	if result.Status == model.StepSuccess {
		return s.OnSuccess
	}
	return s.OnFailure
}

// CompiledWorkflow is the executable state machine the engine consumes,
// decoupled from the stored JSON shape.
type CompiledWorkflow struct {
	ID                 string
	Name               string
	StartStep          string
	EscalationPolicyID string
	RollbackEnabled    bool
	Steps              map[string]*CompiledStep
}

// Compile validates the workflow and lowers it into executable form.
// Definitions with any structural error are refused outright.
func Compile(w *model.Workflow) (*CompiledWorkflow, error) {
	errs, _ := Validate(w)
	if len(errs) > 0 {
		return nil, &InvalidWorkflowError{WorkflowID: w.ID, Errors: errs}
	}

	compiled := &CompiledWorkflow{
		ID:              w.ID,
		Name:            w.Name,
		StartStep:       w.StartStep,
		RollbackEnabled: w.RollbackEnabled,
		Steps:           make(map[string]*CompiledStep, len(w.Steps)),
	}
	if w.EscalationPolicyID != nil {
		compiled.EscalationPolicyID = *w.EscalationPolicyID
	}

	for i := range w.Steps {
		step := &w.Steps[i]

		timeout := DefaultStepTimeout
		if step.TimeoutSeconds > 0 {
			timeout = time.Duration(step.TimeoutSeconds) * time.Second
		}

		cfg := step.Config
		if step.Type == model.StepWebhook && cfg.Method == "" {
			cfg.Method = http.MethodPost
		}

		compiled.Steps[step.ID] = &CompiledStep{
			ID:               step.ID,
			Name:             step.Name,
			Type:             step.Type,
			Config:           cfg,
			Timeout:          timeout,
			OnSuccess:        step.OnSuccess,
			OnFailure:        step.OnFailure,
			OnTrue:           step.OnTrue,
			OnFalse:          step.OnFalse,
			Retry:            step.Retry,
			RollbackScriptID: step.RollbackScriptID,
		}
	}
	return compiled, nil
}
