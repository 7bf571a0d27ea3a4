package remediation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/notify"
	"github.com/verdane/fleetops/internal/platform"
)

type fakeWorkflowStore struct {
	mu        sync.Mutex
	workflows map[string]*model.Workflow
}

func newFakeWorkflowStore(workflows ...*model.Workflow) *fakeWorkflowStore {
	s := &fakeWorkflowStore{workflows: make(map[string]*model.Workflow)}
	for _, w := range workflows {
		s.workflows[w.ID] = w
	}
	return s
}

func (f *fakeWorkflowStore) GetByID(_ context.Context, id string) (*model.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workflows[id]
	if !ok {
		return nil, fmt.Errorf("get workflow: %w", pgx.ErrNoRows)
	}
	cp := *w
	return &cp, nil
}

type fakeExecutionStore struct {
	mu         sync.Mutex
	executions map[string]*model.Execution
	createErr  error
}

func newFakeExecutionStore() *fakeExecutionStore {
	return &fakeExecutionStore{executions: make(map[string]*model.Execution)}
}

func cloneExecution(ex *model.Execution) *model.Execution {
	cp := *ex
	cp.StepResults = append([]model.StepResult(nil), ex.StepResults...)
	cp.Alerts = append([]model.ExecutionAlert(nil), ex.Alerts...)
	if ex.CurrentStep != nil {
		step := *ex.CurrentStep
		cp.CurrentStep = &step
	}
	return &cp
}

func (f *fakeExecutionStore) Create(_ context.Context, ex *model.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	ex.ID = platform.NewID("exec")
	ex.CreatedAt = time.Now()
	f.executions[ex.ID] = cloneExecution(ex)
	return nil
}

func (f *fakeExecutionStore) GetByID(_ context.Context, id string) (*model.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return nil, fmt.Errorf("get execution: %w", pgx.ErrNoRows)
	}
	return cloneExecution(ex), nil
}

func (f *fakeExecutionStore) FindRunning(_ context.Context, workflowID, nodeID string) (*model.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.executions {
		if ex.WorkflowID == workflowID && ex.NodeID == nodeID && ex.Status == model.ExecutionRunning {
			return cloneExecution(ex), nil
		}
	}
	return nil, nil
}

func (f *fakeExecutionStore) SetCurrentStep(_ context.Context, id string, stepID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ex.CurrentStep = stepID
	return nil
}

func (f *fakeExecutionStore) AppendStepResult(_ context.Context, id string, result model.StepResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ex.StepResults = append(ex.StepResults, result)
	return nil
}

func (f *fakeExecutionStore) AppendAlert(_ context.Context, id string, alert model.ExecutionAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ex.Alerts = append(ex.Alerts, alert)
	return nil
}

func (f *fakeExecutionStore) Complete(_ context.Context, id, status, reason string, finishedAt time.Time, durationMS int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if ex.Status != model.ExecutionRunning {
		return false, nil
	}
	ex.Status = status
	ex.CompletionReason = reason
	ex.FinishedAt = &finishedAt
	ex.DurationMS = durationMS
	return true, nil
}

func (f *fakeExecutionStore) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ex.Status = status
	return nil
}

func (f *fakeExecutionStore) MarkInterrupted(_ context.Context, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, ex := range f.executions {
		if ex.Status == model.ExecutionRunning {
			ex.Status = model.ExecutionFailed
			ex.CompletionReason = reason
			n++
		}
	}
	return n, nil
}

func (f *fakeExecutionStore) seed(ex *model.Execution) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ex.ID == "" {
		ex.ID = platform.NewID("exec")
	}
	f.executions[ex.ID] = cloneExecution(ex)
	return ex.ID
}

func (f *fakeExecutionStore) get(id string) *model.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.executions[id]
	if !ok {
		return nil
	}
	return cloneExecution(ex)
}

func (f *fakeExecutionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executions)
}

// fakeJobStore simulates the agent side of the queue: onCreate runs under
// lock right after a job is stored and may flip it to a terminal state, which
// the engine's polling then observes.
type fakeJobStore struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	order     []string
	createErr error
	onCreate  func(job *model.Job)
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*model.Job)}
}

func completeJob(stdout string, exitCode int) func(*model.Job) {
	return func(job *model.Job) {
		job.Status = model.JobComplete
		job.Stdout = stdout
		job.ExitCode = &exitCode
	}
}

func failJob(stderr string, exitCode int) func(*model.Job) {
	return func(job *model.Job) {
		job.Status = model.JobError
		job.Stderr = stderr
		job.ExitCode = &exitCode
	}
}

func (f *fakeJobStore) Create(_ context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	job.ID = platform.NewID("job")
	job.Status = model.JobPending
	job.QueuedAt = time.Now()
	cp := *job
	f.jobs[job.ID] = &cp
	f.order = append(f.order, job.ID)
	if f.onCreate != nil {
		f.onCreate(&cp)
	}
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, id string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get job: %w", pgx.ErrNoRows)
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) CancelPendingByExecution(_ context.Context, executionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, job := range f.jobs {
		if job.ExecutionID != nil && *job.ExecutionID == executionID && job.Status == model.JobPending {
			job.Status = model.JobCancelled
			n++
		}
	}
	return n, nil
}

func (f *fakeJobStore) created() []model.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Job, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.jobs[id])
	}
	return out
}

type fakePolicyStore struct {
	mu       sync.Mutex
	policies map[string]*model.EscalationPolicy
	err      error
}

func newFakePolicyStore(policies ...*model.EscalationPolicy) *fakePolicyStore {
	s := &fakePolicyStore{policies: make(map[string]*model.EscalationPolicy)}
	for _, p := range policies {
		s.policies[p.ID] = p
	}
	return s
}

func (f *fakePolicyStore) GetByID(_ context.Context, id string) (*model.EscalationPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.policies[id]
	if !ok {
		return nil, fmt.Errorf("get escalation policy: %w", pgx.ErrNoRows)
	}
	cp := *p
	return &cp, nil
}

type fakeQuarantineStore struct {
	mu      sync.Mutex
	reasons map[string]string
	err     error
}

func newFakeQuarantineStore() *fakeQuarantineStore {
	return &fakeQuarantineStore{reasons: make(map[string]string)}
}

func (f *fakeQuarantineStore) Set(_ context.Context, nodeID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reasons[nodeID] = reason
	return nil
}

func (f *fakeQuarantineStore) reasonFor(nodeID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reasons[nodeID]
}

type fakeAlertStore struct {
	mu     sync.Mutex
	alerts []model.Alert
	err    error
}

func (f *fakeAlertStore) Create(_ context.Context, a *model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a.ID = platform.NewID("alert")
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeAlertStore) all() []model.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Alert(nil), f.alerts...)
}

type fakeWebhookSender struct {
	mu    sync.Mutex
	calls []notify.WebhookParams
	err   error
}

func (f *fakeWebhookSender) Send(_ context.Context, params notify.WebhookParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	return f.err
}

func (f *fakeWebhookSender) sent() []notify.WebhookParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.WebhookParams(nil), f.calls...)
}

type fakeEmailSender struct {
	mu       sync.Mutex
	messages []notify.EmailMessage
	err      error
}

func (f *fakeEmailSender) Send(_ context.Context, msg notify.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.err
}

func (f *fakeEmailSender) sent() []notify.EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.EmailMessage(nil), f.messages...)
}
