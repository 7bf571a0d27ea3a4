package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verdane/fleetops/internal/model"
)

// ---------- Create ----------

func TestExecutionService_Create_SetsDefaults(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	ex := &model.Execution{
		WorkflowID:   "wf-1",
		WorkflowName: "disk-cleanup",
		NodeID:       "node-1",
		TriggeredBy:  "operator",
	}
	err := svc.Create(ctx, ex)
	require.NoError(t, err)
	assert.NotEmpty(t, ex.ID)
	assert.Equal(t, model.ExecutionRunning, ex.Status)
	assert.False(t, ex.StartedAt.IsZero())
	assert.NotNil(t, ex.StepResults)
	db.AssertExpectations(t)
}

// ---------- FindRunning ----------

// executionRow lists column values in executionColumns order.
func executionRow(id, workflowID, nodeID, status string, now time.Time) []any {
	return []any{
		id, workflowID, "disk-cleanup", nodeID, status,
		nil, // current step
		[]model.StepResult{},
		nil, // alerts
		"operator",
		nil, // trigger context
		"",  // completion reason
		now, nil, 0, now, now,
	}
}

func TestExecutionService_FindRunning_Found(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	row := &mockRow{vals: executionRow("exec-1", "wf-1", "node-1", model.ExecutionRunning, now)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	result, err := svc.FindRunning(ctx, "wf-1", "node-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "exec-1", result.ID)
	db.AssertExpectations(t)
}

func TestExecutionService_FindRunning_NoneIsNotAnError(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	row := &mockRow{err: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	result, err := svc.FindRunning(ctx, "wf-1", "node-1")
	require.NoError(t, err)
	assert.Nil(t, result)
	db.AssertExpectations(t)
}

func TestExecutionService_FindRunning_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	row := &mockRow{err: errors.New("connection lost")}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	result, err := svc.FindRunning(ctx, "wf-1", "node-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "find running execution")
	db.AssertExpectations(t)
}

// ---------- AppendStepResult ----------

func TestExecutionService_AppendStepResult_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		results, ok := args[0].([]model.StepResult)
		return ok && len(results) == 1 && results[0].StepID == "check"
	})).Return(cmdTag("UPDATE", 1), nil)

	err := svc.AppendStepResult(ctx, "exec-1", model.StepResult{
		StepID:   "check",
		StepType: model.StepScript,
		Status:   model.StepSuccess,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- Complete ----------

func TestExecutionService_Complete_Applied(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	applied, err := svc.Complete(ctx, "exec-1", model.ExecutionSuccess, "all steps completed", time.Now(), 1200)
	require.NoError(t, err)
	assert.True(t, applied)
	db.AssertExpectations(t)
}

func TestExecutionService_Complete_AlreadyTerminal(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	// Guard matched zero rows: another writer finished the execution first.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 0), nil)

	applied, err := svc.Complete(ctx, "exec-1", model.ExecutionFailed, "step alert failed", time.Now(), 900)
	require.NoError(t, err)
	assert.False(t, applied)
	db.AssertExpectations(t)
}

// ---------- MarkInterrupted ----------

func TestExecutionService_MarkInterrupted_CountsRows(t *testing.T) {
	db := &mockDB{}
	svc := NewExecutionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 3), nil)

	count, err := svc.MarkInterrupted(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	db.AssertExpectations(t)
}
