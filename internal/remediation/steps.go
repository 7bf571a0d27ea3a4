package remediation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/verdane/fleetops/internal/condition"
	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/notify"
)

// runStep executes one attempt of a step, racing its work against the step
// timeout. Timing out is the same failure as the step erroring itself.
func (e *Engine) runStep(ctx context.Context, execution *model.Execution, step *CompiledStep) *model.StepResult {
	started := time.Now()
	result := &model.StepResult{StepID: step.ID, StepType: step.Type, StartedAt: started}

	stepCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	type outcome struct {
		output    string
		exitCode  *int
		condition *bool
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		switch step.Type {
		case model.StepScript:
			o.output, o.exitCode, o.err = e.runScriptStep(stepCtx, execution, step)
		case model.StepWebhook:
			o.err = e.runWebhookStep(stepCtx, execution, step)
		case model.StepEmail:
			o.err = e.runEmailStep(stepCtx, execution, step)
		case model.StepDelay:
			o.err = e.runDelayStep(stepCtx, step)
		case model.StepCondition:
			o.condition = e.runConditionStep(execution, step)
		default:
			o.err = fmt.Errorf("unknown step type %q", step.Type)
		}
		done <- o
	}()

	var o outcome
	select {
	case o = <-done:
	case <-stepCtx.Done():
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			o = outcome{err: fmt.Errorf("step timed out after %s", step.Timeout)}
		} else {
			o = outcome{err: stepCtx.Err()}
		}
	}

	finished := time.Now()
	result.FinishedAt = finished
	result.DurationMS = finished.Sub(started).Milliseconds()
	result.Output = o.output
	result.ExitCode = o.exitCode
	result.ConditionResult = o.condition
	if o.err != nil {
		result.Status = model.StepFailed
		result.Error = o.err.Error()
	} else {
		result.Status = model.StepSuccess
	}
	return result
}

// runScriptStep queues a job on the execution's node and polls until it
// reaches a terminal state. The step timeout bounds the poll through ctx.
func (e *Engine) runScriptStep(ctx context.Context, execution *model.Execution, step *CompiledStep) (string, *int, error) {
	job := &model.Job{
		ScriptID:    step.Config.ScriptID,
		NodeID:      execution.NodeID,
		ExecutionID: &execution.ID,
		Priority:    model.PriorityHigh,
		Variables:   step.Config.Variables,
		Metadata: map[string]string{
			"workflow": execution.WorkflowName,
			"step":     step.ID,
		},
	}
	if err := e.jobs.Create(ctx, job); err != nil {
		return "", nil, fmt.Errorf("create step job: %w", err)
	}
	metrics.JobsCreated.WithLabelValues("remediation").Inc()

	if err := e.dispatcher.Dispatch(ctx, job); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.ID).Str("node_id", job.NodeID).Msg("dispatch nudge failed, job stays queued")
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-ticker.C:
			current, err := e.jobs.GetByID(ctx, job.ID)
			if err != nil {
				e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("poll job failed, retrying")
				continue
			}
			switch current.Status {
			case model.JobComplete:
				return current.Stdout, current.ExitCode, nil
			case model.JobError:
				msg := current.Stderr
				if msg == "" {
					msg = "job failed"
				}
				return current.Stdout, current.ExitCode, fmt.Errorf("job failed: %s", msg)
			case model.JobCancelled:
				return current.Stdout, current.ExitCode, fmt.Errorf("job cancelled")
			}
		}
	}
}

func (e *Engine) runWebhookStep(ctx context.Context, execution *model.Execution, step *CompiledStep) error {
	return e.webhooks.Send(ctx, notify.WebhookParams{
		URL:       step.Config.URL,
		Method:    step.Config.Method,
		Headers:   step.Config.Headers,
		Format:    step.Config.Format,
		Event:     fmt.Sprintf("execution.step.%s", step.ID),
		Execution: execution,
	})
}

func (e *Engine) runEmailStep(ctx context.Context, execution *model.Execution, step *CompiledStep) error {
	body := step.Config.Body
	if body == "" {
		body = expandPlaceholders(step.Config.Template, execution)
	}
	return e.email.Send(ctx, notify.EmailMessage{
		To:      step.Config.To,
		Subject: expandPlaceholders(step.Config.Subject, execution),
		Body:    body,
	})
}

func (e *Engine) runDelayStep(ctx context.Context, step *CompiledStep) error {
	timer := time.NewTimer(time.Duration(step.Config.DelaySeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runConditionStep evaluates the predicate against the immediately preceding
// step result. No preceding result evaluates false.
func (e *Engine) runConditionStep(execution *model.Execution, step *CompiledStep) *bool {
	verdict := false
	if n := len(execution.StepResults); n > 0 && step.Config.Condition != nil {
		verdict = condition.Evaluate(step.Config.Condition, &execution.StepResults[n-1])
	}
	return &verdict
}

// expandPlaceholders substitutes ${key} references from the trigger context
// plus the built-in execution_id, workflow and node_id keys.
func expandPlaceholders(template string, execution *model.Execution) string {
	if template == "" {
		return ""
	}
	vars := map[string]string{
		"execution_id": execution.ID,
		"workflow":     execution.WorkflowName,
		"node_id":      execution.NodeID,
	}
	for k, v := range execution.TriggerContext {
		vars[k] = v
	}
	return os.Expand(template, func(key string) string { return vars[key] })
}
