// Package remediation validates, compiles and executes multi-step
// remediation workflows: retries with backoff, branching on step results,
// tiered escalation and optional rollback.
package remediation

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/verdane/fleetops/internal/model"
)

var webhookMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Validate checks a workflow definition structurally and returns every
// problem found rather than stopping at the first. Warnings flag suspicious
// but legal shapes.
func Validate(w *model.Workflow) ([]ValidationError, []string) {
	var errs []ValidationError
	var warnings []string

	if len(w.Steps) == 0 {
		errs = append(errs, ValidationError{Message: "workflow has no steps"})
	}

	steps := make(map[string]*model.Step, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.ID == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("step %d has no id", i)})
			continue
		}
		if _, dup := steps[step.ID]; dup {
			errs = append(errs, ValidationError{StepID: step.ID, Message: "duplicate step id"})
			continue
		}
		steps[step.ID] = step
	}

	for i := range w.Steps {
		if w.Steps[i].ID == "" {
			continue
		}
		errs = append(errs, validateStep(&w.Steps[i])...)
	}

	for i := range w.Steps {
		step := &w.Steps[i]
		for _, ref := range []struct{ field, target string }{
			{"on_success", step.OnSuccess},
			{"on_failure", step.OnFailure},
			{"on_true", step.OnTrue},
			{"on_false", step.OnFalse},
		} {
			if ref.target == "" {
				continue
			}
			if _, ok := steps[ref.target]; !ok {
				errs = append(errs, ValidationError{
					StepID:  step.ID,
					Message: fmt.Sprintf("%s references unknown step %q", ref.field, ref.target),
				})
			}
		}
	}

	switch {
	case w.StartStep == "":
		errs = append(errs, ValidationError{Message: "start_step is required"})
	default:
		if _, ok := steps[w.StartStep]; !ok {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("start_step references unknown step %q", w.StartStep)})
		}
	}

	errs = append(errs, detectCycles(w, steps)...)

	if len(w.Steps) > 0 && !hasSink(w.Steps) {
		warnings = append(warnings, "workflow has no terminal step; every step transitions somewhere")
	}

	return errs, warnings
}

func validateStep(step *model.Step) []ValidationError {
	var errs []ValidationError
	fail := func(format string, args ...any) {
		errs = append(errs, ValidationError{StepID: step.ID, Message: fmt.Sprintf(format, args...)})
	}

	if step.TimeoutSeconds < 0 {
		fail("timeout_seconds must be positive")
	}

	if step.Type == model.StepCondition {
		if step.OnSuccess != "" || step.OnFailure != "" {
			fail("condition steps transition via on_true/on_false, not on_success/on_failure")
		}
	} else if step.OnTrue != "" || step.OnFalse != "" {
		fail("on_true/on_false are only valid on condition steps")
	}

	switch step.Type {
	case model.StepScript:
		if step.Config.ScriptID == "" {
			fail("script steps require a script_id")
		}
	case model.StepWebhook:
		u, err := url.Parse(step.Config.URL)
		if step.Config.URL == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			fail("webhook steps require a well-formed http(s) url")
		}
		if m := step.Config.Method; m != "" && !webhookMethods[m] {
			fail("webhook method %q not allowed", m)
		}
	case model.StepEmail:
		if len(step.Config.To) == 0 {
			fail("email steps require at least one recipient")
		}
		if step.Config.Subject == "" {
			fail("email steps require a subject")
		}
		if step.Config.Body == "" && step.Config.Template == "" {
			fail("email steps require a body or template")
		}
	case model.StepDelay:
		if step.Config.DelaySeconds <= 0 {
			fail("delay steps require a positive delay_seconds")
		}
	case model.StepCondition:
		if step.Config.Condition == nil {
			fail("condition steps require a condition")
		}
		if step.OnTrue == "" && step.OnFalse == "" {
			fail("condition steps require at least one of on_true/on_false")
		}
	default:
		fail("unknown step type %q", step.Type)
	}

	if step.Retry != nil {
		if step.Retry.MaxAttempts < 0 {
			fail("retry max_attempts must not be negative")
		}
		if b := step.Retry.Backoff; b != "" && b != model.BackoffExponential && b != model.BackoffLinear {
			fail("retry backoff %q not recognized", b)
		}
		if step.Retry.DelaySeconds < 0 {
			fail("retry delay_seconds must not be negative")
		}
	}

	return errs
}

func transitions(step *model.Step) []string {
	var out []string
	for _, t := range []string{step.OnSuccess, step.OnFailure, step.OnTrue, step.OnFalse} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasSink(steps []model.Step) bool {
	for i := range steps {
		if len(transitions(&steps[i])) == 0 {
			return true
		}
	}
	return false
}

// detectCycles runs a DFS with a recursion stack from the start step, then
// from every still-unvisited step to catch cycles disconnected from the
// start.
func detectCycles(w *model.Workflow, steps map[string]*model.Step) []ValidationError {
	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	state := make(map[string]int, len(steps))
	var errs []ValidationError

	var visit func(id string)
	visit = func(id string) {
		step, ok := steps[id]
		if !ok {
			return
		}
		switch state[id] {
		case inStack:
			errs = append(errs, ValidationError{StepID: id, Message: "circular dependency detected"})
			return
		case finished:
			return
		}
		state[id] = inStack
		for _, next := range transitions(step) {
			visit(next)
		}
		state[id] = finished
	}

	if _, ok := steps[w.StartStep]; ok {
		visit(w.StartStep)
	}
	for i := range w.Steps {
		id := w.Steps[i].ID
		if id != "" && state[id] == unvisited {
			visit(id)
		}
	}
	return errs
}
