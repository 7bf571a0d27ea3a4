// Package remediation runs workflows against nodes. A workflow is compiled
// into a step graph, then an execution walks that graph one step at a time,
// persisting every attempt so that a restart or an operator cancel can pick
// up from the stored record rather than from goroutine state.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/dispatch"
	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/notify"
)

const defaultPollInterval = 2 * time.Second

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Workflows  WorkflowStore
	Executions ExecutionStore
	Jobs       JobStore
	Escalator  *Escalator
	Webhooks   WebhookSender
	Email      notify.EmailSender
	Dispatcher dispatch.Dispatcher

	// PollInterval is how often script steps check their job's status.
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Engine owns the advancement goroutines for running executions.
type Engine struct {
	workflows    WorkflowStore
	executions   ExecutionStore
	jobs         JobStore
	escalator    *Escalator
	webhooks     WebhookSender
	email        notify.EmailSender
	dispatcher   dispatch.Dispatcher
	pollInterval time.Duration
	logger       zerolog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatch.Nop{}
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		workflows:    cfg.Workflows,
		executions:   cfg.Executions,
		jobs:         cfg.Jobs,
		escalator:    cfg.Escalator,
		webhooks:     cfg.Webhooks,
		email:        cfg.Email,
		dispatcher:   cfg.Dispatcher,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger.With().Str("component", "engine").Logger(),
		baseCtx:      ctx,
		stop:         stop,
		active:       make(map[string]context.CancelFunc),
	}
}

// Trigger starts a workflow against a node, or returns the execution already
// running for that pair. The unique index on running (workflow_id, node_id)
// pairs backstops the check under concurrent triggers.
func (e *Engine) Trigger(ctx context.Context, workflowID, nodeID, triggeredBy string, triggerContext map[string]string) (*model.Execution, error) {
	wf, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	if !wf.Enabled {
		return nil, ErrWorkflowDisabled
	}
	compiled, err := Compile(wf)
	if err != nil {
		return nil, err
	}

	existing, err := e.executions.FindRunning(ctx, wf.ID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("check running execution: %w", err)
	}
	if existing != nil {
		e.logger.Info().Str("execution_id", existing.ID).Str("workflow", wf.Name).Str("node_id", nodeID).Msg("execution already running, not starting another")
		return existing, nil
	}

	start := compiled.StartStep
	execution := &model.Execution{
		WorkflowID:     wf.ID,
		WorkflowName:   wf.Name,
		NodeID:         nodeID,
		Status:         model.ExecutionRunning,
		CurrentStep:    &start,
		TriggeredBy:    triggeredBy,
		TriggerContext: triggerContext,
		StartedAt:      time.Now(),
	}
	if err := e.executions.Create(ctx, execution); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if existing, findErr := e.executions.FindRunning(ctx, wf.ID, nodeID); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("create execution: %w", err)
	}

	runCtx, cancel := context.WithCancel(e.baseCtx)
	e.mu.Lock()
	e.active[execution.ID] = cancel
	e.mu.Unlock()
	metrics.ActiveExecutions.Inc()

	e.logger.Info().Str("execution_id", execution.ID).Str("workflow", wf.Name).Str("node_id", nodeID).Str("triggered_by", triggeredBy).Msg("execution started")

	e.wg.Add(1)
	go e.advance(runCtx, execution.ID, compiled)
	return execution, nil
}

// advance walks the step graph. Each iteration reloads the execution so that
// operator cancels, which only flip the stored status, take effect at the
// next step boundary.
func (e *Engine) advance(ctx context.Context, executionID string, wf *CompiledWorkflow) {
	defer e.wg.Done()
	defer e.removeActive(executionID)
	logger := e.logger.With().Str("execution_id", executionID).Str("workflow", wf.Name).Logger()

	for {
		if ctx.Err() != nil {
			return
		}
		execution, err := e.executions.GetByID(ctx, executionID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("reload execution failed, abandoning advancement")
			return
		}
		if execution.Status != model.ExecutionRunning {
			logger.Info().Str("status", execution.Status).Msg("execution no longer running, stopping advancement")
			return
		}
		if execution.CurrentStep == nil || *execution.CurrentStep == "" {
			e.finish(ctx, execution, wf, model.ExecutionSuccess, "workflow completed")
			return
		}

		step, ok := wf.Steps[*execution.CurrentStep]
		if !ok {
			e.finish(ctx, execution, wf, model.ExecutionFailed, fmt.Sprintf("unknown step %q", *execution.CurrentStep))
			return
		}

		result := e.runStepWithRetries(ctx, execution, step)
		if ctx.Err() != nil {
			return
		}

		next := step.Next(result)
		if next == "" {
			if result.Status == model.StepFailed {
				cause := fmt.Sprintf("step %s failed: %s", step.ID, result.Error)
				if step.OnFailure == "" && wf.EscalationPolicyID != "" && e.escalator != nil {
					e.escalator.Escalate(ctx, execution, wf, cause)
				}
				e.finish(ctx, execution, wf, model.ExecutionFailed, cause)
			} else {
				e.finish(ctx, execution, wf, model.ExecutionSuccess, "workflow completed")
			}
			return
		}
		if err := e.executions.SetCurrentStep(ctx, executionID, &next); err != nil {
			logger.Error().Err(err).Str("next_step", next).Msg("persist step transition failed, abandoning advancement")
			return
		}
	}
}

// runStepWithRetries runs a step until it succeeds, exhausts its retry
// policy, or the engine is shutting down. Every attempt is appended to the
// execution record; the in-memory copy mirrors the appends so retry counting
// and rollback ordering see them.
func (e *Engine) runStepWithRetries(ctx context.Context, execution *model.Execution, step *CompiledStep) *model.StepResult {
	logger := e.logger.With().Str("execution_id", execution.ID).Str("step", step.ID).Logger()

	attempt := 0
	for i := range execution.StepResults {
		if execution.StepResults[i].StepID == step.ID {
			attempt++
		}
	}

	for {
		result := e.runStep(ctx, execution, step)
		result.RetryCount = attempt
		if ctx.Err() != nil {
			// Shutdown mid-step. Leave the record as it was so restart
			// recovery deals with the execution.
			return result
		}

		if err := e.executions.AppendStepResult(ctx, execution.ID, *result); err != nil {
			logger.Error().Err(err).Msg("persist step result failed")
		}
		execution.StepResults = append(execution.StepResults, *result)
		metrics.StepResults.WithLabelValues(step.Type, result.Status).Inc()

		if result.Status == model.StepSuccess {
			logger.Info().Int("attempt", attempt).Int64("duration_ms", result.DurationMS).Msg("step succeeded")
			return result
		}

		retry, delay := e.escalator.DecideRetry(execution, step)
		if !retry {
			logger.Warn().Int("attempt", attempt).Str("error", result.Error).Msg("step failed, no retries left")
			return result
		}
		logger.Info().Int("attempt", attempt).Dur("retry_in", delay).Str("error", result.Error).Msg("step failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result
		case <-timer.C:
		}
		attempt++
	}
}

// finish writes the terminal state exactly once. If another writer got there
// first the guarded update reports not applied and nothing else happens here.
func (e *Engine) finish(ctx context.Context, execution *model.Execution, wf *CompiledWorkflow, status, reason string) {
	logger := e.logger.With().Str("execution_id", execution.ID).Str("workflow", wf.Name).Logger()

	finishedAt := time.Now()
	durationMS := finishedAt.Sub(execution.StartedAt).Milliseconds()
	applied, err := e.executions.Complete(ctx, execution.ID, status, reason, finishedAt, durationMS)
	if err != nil {
		logger.Error().Err(err).Str("status", status).Msg("finalize execution failed")
		return
	}
	if !applied {
		logger.Debug().Msg("execution already finalized elsewhere")
		return
	}

	logger.Info().Str("status", status).Str("reason", reason).Int64("duration_ms", durationMS).Msg("execution finished")

	if status == model.ExecutionFailed && wf.RollbackEnabled {
		e.rollback(ctx, execution, wf)
	}
}

// rollback queues the rollback script of every successful step, most recent
// first. The execution is marked rolled back only when at least one rollback
// job was actually queued.
func (e *Engine) rollback(ctx context.Context, execution *model.Execution, wf *CompiledWorkflow) {
	logger := e.logger.With().Str("execution_id", execution.ID).Str("workflow", wf.Name).Logger()

	queued := 0
	for i := len(execution.StepResults) - 1; i >= 0; i-- {
		r := &execution.StepResults[i]
		if r.Status != model.StepSuccess {
			continue
		}
		step := wf.Steps[r.StepID]
		if step == nil || step.RollbackScriptID == "" {
			continue
		}

		job := &model.Job{
			ScriptID:    step.RollbackScriptID,
			NodeID:      execution.NodeID,
			ExecutionID: &execution.ID,
			Priority:    model.PriorityHigh,
			Metadata: map[string]string{
				"rollback_for_step": step.ID,
				"workflow":          wf.Name,
			},
		}
		if err := e.jobs.Create(ctx, job); err != nil {
			logger.Error().Err(err).Str("step", step.ID).Msg("queue rollback job failed")
			continue
		}
		metrics.JobsCreated.WithLabelValues("rollback").Inc()
		if err := e.dispatcher.Dispatch(ctx, job); err != nil {
			logger.Warn().Err(err).Str("job_id", job.ID).Msg("dispatch nudge failed, job stays queued")
		}
		queued++
	}

	if queued == 0 {
		return
	}
	if err := e.executions.SetStatus(ctx, execution.ID, model.ExecutionRolledBack); err != nil {
		logger.Error().Err(err).Msg("mark execution rolled back failed")
		return
	}
	logger.Info().Int("rollback_jobs", queued).Msg("execution rolled back")
}

// Cancel finalizes a running execution on behalf of an operator. The
// advancement goroutine notices the status flip at its next step boundary;
// pending jobs the execution queued are cancelled immediately.
func (e *Engine) Cancel(ctx context.Context, executionID string) error {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("load execution: %w", err)
	}
	if execution.Status != model.ExecutionRunning {
		return ErrNotRunning
	}

	finishedAt := time.Now()
	durationMS := finishedAt.Sub(execution.StartedAt).Milliseconds()
	applied, err := e.executions.Complete(ctx, executionID, model.ExecutionCancelled, "cancelled by operator", finishedAt, durationMS)
	if err != nil {
		return fmt.Errorf("cancel execution: %w", err)
	}
	if !applied {
		return ErrNotRunning
	}

	e.mu.Lock()
	if cancel, ok := e.active[executionID]; ok {
		cancel()
	}
	e.mu.Unlock()

	n, err := e.jobs.CancelPendingByExecution(ctx, executionID)
	if err != nil {
		e.logger.Warn().Err(err).Str("execution_id", executionID).Msg("cancel pending jobs failed")
	} else if n > 0 {
		e.logger.Info().Str("execution_id", executionID).Int64("jobs_cancelled", n).Msg("pending jobs cancelled")
	}

	e.logger.Info().Str("execution_id", executionID).Msg("execution cancelled")
	return nil
}

// RecoverInterrupted fails executions left running by a previous process.
// Call it once at startup before triggering anything new.
func (e *Engine) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := e.executions.MarkInterrupted(ctx, "interrupted by engine restart")
	if err != nil {
		return 0, fmt.Errorf("mark interrupted executions: %w", err)
	}
	if n > 0 {
		e.logger.Warn().Int64("executions", n).Msg("failed executions interrupted by restart")
	}
	return n, nil
}

// Running reports whether this engine is advancing the given execution.
func (e *Engine) Running(executionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[executionID]
	return ok
}

// Close stops all advancement goroutines and waits for them to exit.
// In-flight executions stay running in the store for restart recovery.
func (e *Engine) Close() {
	e.stop()
	e.wg.Wait()
	e.mu.Lock()
	e.active = make(map[string]context.CancelFunc)
	e.mu.Unlock()
}

func (e *Engine) removeActive(executionID string) {
	e.mu.Lock()
	if _, ok := e.active[executionID]; ok {
		delete(e.active, executionID)
		metrics.ActiveExecutions.Dec()
	}
	e.mu.Unlock()
}
