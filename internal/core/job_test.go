package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verdane/fleetops/internal/model"
)

// ---------- Create ----------

func TestJobService_Create_SetsDefaults(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	job := &model.Job{ScriptID: "script-backup", NodeID: "node-1", Priority: model.PriorityNormal}
	err := svc.Create(ctx, job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobPending, job.Status)
	assert.False(t, job.QueuedAt.IsZero())
	db.AssertExpectations(t)
}

func TestJobService_Create_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("fk violation"))

	err := svc.Create(ctx, &model.Job{ScriptID: "s", NodeID: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create job")
	db.AssertExpectations(t)
}

// ---------- Counting ----------

func TestJobService_CountActiveByNode(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	row := &mockRow{vals: []any{2}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	count, err := svc.CountActiveByNode(ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	db.AssertExpectations(t)
}

func TestJobService_CountActiveGlobal_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	row := &mockRow{err: errors.New("connection lost")}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := svc.CountActiveGlobal(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count active jobs")
	db.AssertExpectations(t)
}

// ---------- State transitions ----------

func TestJobService_Finish_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	exitCode := 0
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	err := svc.Finish(ctx, "job-1", model.JobComplete, &exitCode, "done", "")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestJobService_CancelPendingByNode_CountsRows(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 4), nil)

	count, err := svc.CancelPendingByNode(ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	db.AssertExpectations(t)
}
