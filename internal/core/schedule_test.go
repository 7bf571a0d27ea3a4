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

func TestNewScheduleService(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)

	require.NotNil(t, svc)
	assert.Equal(t, db, svc.db)
}

// ---------- Create ----------

func TestScheduleService_Create_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	sched := &model.Schedule{
		Name:            "nightly-backup",
		CronExpr:        "0 2 * * *",
		Timezone:        "UTC",
		ScriptID:        "script-backup",
		Priority:        model.PriorityNormal,
		MissedJobPolicy: model.MissedJobSkip,
		Enabled:         true,
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Create(ctx, sched)
	require.NoError(t, err)
	assert.NotEmpty(t, sched.ID)
	assert.False(t, sched.CreatedAt.IsZero())
	db.AssertExpectations(t)
}

func TestScheduleService_Create_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	sched := &model.Schedule{Name: "nightly-backup", CronExpr: "0 2 * * *"}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("unique violation"))

	err := svc.Create(ctx, sched)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schedule")
	db.AssertExpectations(t)
}

// ---------- GetByID ----------

// scheduleRow lists column values in scheduleColumns order.
func scheduleRow(id, name string, enabled bool, now time.Time) []any {
	return []any{
		id, name, "", "0 2 * * *", "UTC", "script-backup",
		nil, // variables
		model.TargetSet{NodeIDs: []string{"node-1"}},
		model.PriorityNormal,
		model.ConcurrencyLimits{MaxPerNode: 1},
		nil, nil, // window ids, depends on
		30, model.MissedJobSkip, enabled,
		nil, nil, // last run, next run
		0, 0, now, now,
	}
}

func TestScheduleService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	row := &mockRow{vals: scheduleRow("sched-1", "nightly-backup", true, now)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	result, err := svc.GetByID(ctx, "sched-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "sched-1", result.ID)
	assert.Equal(t, "nightly-backup", result.Name)
	assert.Equal(t, "0 2 * * *", result.CronExpr)
	assert.Equal(t, 1, result.Concurrency.MaxPerNode)
	assert.True(t, result.Enabled)
	db.AssertExpectations(t)
}

func TestScheduleService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	row := &mockRow{err: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	result, err := svc.GetByID(ctx, "nonexistent")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "get schedule")
	db.AssertExpectations(t)
}

// ---------- List ----------

func TestScheduleService_List_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	rows := rowsOf(
		scheduleRow("sched-1", "nightly-backup", true, now),
		scheduleRow("sched-2", "weekly-report", false, now),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	result, hasMore, err := svc.List(ctx, ScheduleFilters{}, 50, "")
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, result, 2)
	assert.Equal(t, "nightly-backup", result[0].Name)
	assert.Equal(t, "weekly-report", result[1].Name)
	db.AssertExpectations(t)
}

func TestScheduleService_List_Empty(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(noRows(), nil)

	result, hasMore, err := svc.List(ctx, ScheduleFilters{}, 50, "")
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, result)
	db.AssertExpectations(t)
}

func TestScheduleService_List_HasMore(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	rows := rowsOf(
		scheduleRow("sched-1", "a", true, now),
		scheduleRow("sched-2", "b", true, now),
		scheduleRow("sched-3", "c", true, now),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	result, hasMore, err := svc.List(ctx, ScheduleFilters{}, 2, "")
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, result, 2)
	db.AssertExpectations(t)
}

func TestScheduleService_List_QueryError(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("connection lost"))

	result, _, err := svc.List(ctx, ScheduleFilters{}, 50, "")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "list schedules")
	db.AssertExpectations(t)
}

// ---------- Bookkeeping ----------

func TestScheduleService_RecordRun_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	next := time.Now().Add(time.Hour)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag("UPDATE", 1), nil)

	err := svc.RecordRun(ctx, "sched-1", time.Now(), &next)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestScheduleService_RecordFailure_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("db down"))

	err := svc.RecordFailure(ctx, "sched-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record schedule failure")
	db.AssertExpectations(t)
}

func TestScheduleService_SetEnabled_DisableClearsNextRun(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)
	ctx := context.Background()

	next := time.Now().Add(time.Hour)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		// next_run argument must be nil when disabling.
		return args[1] == (*time.Time)(nil)
	})).Return(cmdTag("UPDATE", 1), nil)

	err := svc.SetEnabled(ctx, "sched-1", false, &next)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- GetByIDs ----------

func TestScheduleService_GetByIDs_EmptyInput(t *testing.T) {
	db := &mockDB{}
	svc := NewScheduleService(db)

	result, err := svc.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	db.AssertNotCalled(t, "Query")
}
