package remediation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/notify"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 60 * time.Second
	maxBackoff         = 3600 * time.Second
)

// Escalator decides retries for failed steps and walks escalation policy
// tiers when a failure is final. It never propagates errors back into the
// advancement loop; exhaustion surfaces as a persisted administrator alert.
type Escalator struct {
	policies   PolicyStore
	jobs       JobStore
	executions ExecutionStore
	quarantine QuarantineStore
	alerts     AlertStore
	webhooks   WebhookSender
	email      notify.EmailSender
	logger     zerolog.Logger
}

func NewEscalator(policies PolicyStore, jobs JobStore, executions ExecutionStore, quarantine QuarantineStore, alerts AlertStore, webhooks WebhookSender, email notify.EmailSender, logger zerolog.Logger) *Escalator {
	return &Escalator{
		policies:   policies,
		jobs:       jobs,
		executions: executions,
		quarantine: quarantine,
		alerts:     alerts,
		webhooks:   webhooks,
		email:      email,
		logger:     logger.With().Str("component", "escalator").Logger(),
	}
}

// DecideRetry reports whether the step should run again and after how long.
// Consumed attempts are counted from the execution's recorded step results,
// so the decision survives whatever the caller keeps in memory.
func (e *Escalator) DecideRetry(execution *model.Execution, step *CompiledStep) (bool, time.Duration) {
	policy := step.Retry
	if policy == nil {
		return false, 0
	}

	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	attempts := 0
	for i := range execution.StepResults {
		r := &execution.StepResults[i]
		if r.StepID == step.ID && r.Status == model.StepFailed {
			attempts++
		}
	}
	if attempts >= maxAttempts {
		return false, 0
	}
	return true, Backoff(policy, attempts)
}

// Backoff computes the delay before a retry attempt. Exponential doubles per
// attempt, linear grows by the base each attempt; both cap at one hour.
func Backoff(policy *model.RetryPolicy, attempt int) time.Duration {
	base := time.Duration(policy.DelaySeconds) * time.Second
	if base <= 0 {
		base = defaultRetryDelay
	}
	if attempt > 30 {
		return maxBackoff
	}

	var delay time.Duration
	switch policy.Backoff {
	case model.BackoffLinear:
		delay = base * time.Duration(attempt+1)
	default:
		delay = base * time.Duration(int64(1)<<uint(attempt))
	}
	if delay <= 0 || delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// Escalate walks the workflow's policy tiers in order until one succeeds.
// Every tier attempt is recorded on the execution; total failure raises an
// administrator alert.
func (e *Escalator) Escalate(ctx context.Context, execution *model.Execution, wf *CompiledWorkflow, cause string) {
	logger := e.logger.With().Str("execution_id", execution.ID).Str("workflow", wf.Name).Logger()

	if wf.EscalationPolicyID == "" {
		e.raiseAdminAlert(ctx, execution, "no escalation policy configured: "+cause)
		return
	}

	policy, err := e.policies.GetByID(ctx, wf.EscalationPolicyID)
	if err != nil {
		logger.Error().Err(err).Str("policy_id", wf.EscalationPolicyID).Msg("escalation policy lookup failed")
		e.raiseAdminAlert(ctx, execution, "escalation policy lookup failed: "+cause)
		return
	}

	for i := range policy.Tiers {
		tier := &policy.Tiers[i]
		tierErr := e.runTier(ctx, execution, tier, cause)

		message := cause
		if tierErr != nil {
			message = fmt.Sprintf("%s: %s", cause, tierErr)
		}
		alert := model.ExecutionAlert{
			Tier:      tier.Type,
			Message:   message,
			Success:   tierErr == nil,
			CreatedAt: time.Now(),
		}
		if err := e.executions.AppendAlert(ctx, execution.ID, alert); err != nil {
			logger.Error().Err(err).Msg("record escalation alert failed")
		}

		if tierErr == nil {
			metrics.Escalations.WithLabelValues(tier.Type, "success").Inc()
			logger.Info().Str("tier", tier.Type).Int("tier_index", i).Msg("escalation tier succeeded")
			return
		}
		metrics.Escalations.WithLabelValues(tier.Type, "failed").Inc()
		logger.Warn().Err(tierErr).Str("tier", tier.Type).Int("tier_index", i).Msg("escalation tier failed, trying next")
	}

	e.raiseAdminAlert(ctx, execution, "all escalation tiers failed: "+cause)
}

func (e *Escalator) runTier(ctx context.Context, execution *model.Execution, tier *model.EscalationTier, cause string) error {
	switch tier.Type {
	case model.TierRunScript:
		if tier.Config.ScriptID == "" {
			return fmt.Errorf("run_script tier has no script_id")
		}
		job := &model.Job{
			ScriptID:    tier.Config.ScriptID,
			NodeID:      execution.NodeID,
			ExecutionID: &execution.ID,
			Priority:    model.PriorityHigh,
			Variables:   tier.Config.Variables,
			Metadata: map[string]string{
				"origin":   "escalation",
				"workflow": execution.WorkflowName,
			},
		}
		if err := e.jobs.Create(ctx, job); err != nil {
			return fmt.Errorf("queue escalation script: %w", err)
		}
		metrics.JobsCreated.WithLabelValues("escalation").Inc()
		return nil

	case model.TierWebhook:
		return e.webhooks.Send(ctx, notify.WebhookParams{
			URL:       tier.Config.URL,
			Method:    tier.Config.Method,
			Format:    tier.Config.Format,
			Event:     "execution.escalated",
			Message:   cause,
			Execution: execution,
		})

	case model.TierEmail:
		subject := tier.Config.Subject
		if subject == "" {
			subject = fmt.Sprintf("escalation: %s failed on %s", execution.WorkflowName, execution.NodeID)
		}
		body := tier.Config.Body
		if body == "" {
			body = cause
		}
		return e.email.Send(ctx, notify.EmailMessage{To: tier.Config.To, Subject: subject, Body: body})

	case model.TierQuarantine:
		reason := tier.Config.Reason
		if reason == "" {
			reason = fmt.Sprintf("escalation from workflow %s: %s", execution.WorkflowName, cause)
		}
		return e.quarantine.Set(ctx, execution.NodeID, reason)

	case model.TierCustom:
		return fmt.Errorf("custom escalation action %q not implemented", tier.Config.Action)

	default:
		return fmt.Errorf("unknown escalation tier type %q", tier.Type)
	}
}

// raiseAdminAlert persists a first-class alert record so exhaustion stays
// discoverable after the fact, not just logged.
func (e *Escalator) raiseAdminAlert(ctx context.Context, execution *model.Execution, message string) {
	alert := &model.Alert{
		Severity:    model.SeverityCritical,
		Source:      "escalation",
		ExecutionID: &execution.ID,
		NodeID:      &execution.NodeID,
		Message:     message,
		Metadata:    map[string]string{"workflow": execution.WorkflowName},
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.Error().Err(err).Str("execution_id", execution.ID).Msg("persist admin alert failed")
	}
}
