package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
	"github.com/verdane/fleetops/internal/window"
)

type recordedRun struct {
	id      string
	lastRun time.Time
	nextRun *time.Time
}

type fakeScheduleStore struct {
	mu        sync.Mutex
	schedules map[string]*model.Schedule
	listErr   error
	getErr    error
	runs      []recordedRun
	nextRuns  int
}

func newFakeScheduleStore(schedules ...*model.Schedule) *fakeScheduleStore {
	s := &fakeScheduleStore{schedules: make(map[string]*model.Schedule)}
	for _, sched := range schedules {
		s.schedules[sched.ID] = sched
	}
	return s
}

func (s *fakeScheduleStore) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sched, ok := s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("get schedule: %w", pgx.ErrNoRows)
	}
	cp := *sched
	return &cp, nil
}

func (s *fakeScheduleStore) GetByIDs(ctx context.Context, ids []string) ([]model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	var out []model.Schedule
	for _, id := range ids {
		if sched, ok := s.schedules[id]; ok {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (s *fakeScheduleStore) ListEnabled(ctx context.Context) ([]model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Schedule
	for _, sched := range s.schedules {
		if sched.Enabled {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (s *fakeScheduleStore) RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, recordedRun{id: id, lastRun: lastRun, nextRun: nextRun})
	if sched, ok := s.schedules[id]; ok {
		sched.LastRun = &lastRun
		sched.NextRun = nextRun
		sched.RunCount++
	}
	return nil
}

func (s *fakeScheduleStore) UpdateNextRun(ctx context.Context, id string, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRuns++
	if sched, ok := s.schedules[id]; ok {
		sched.NextRun = nextRun
	}
	return nil
}

func (s *fakeScheduleStore) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

type fakeJobStore struct {
	mu          sync.Mutex
	created     []model.Job
	createErr   error
	nodeCounts  map[string]int
	meshCount   int
	globalCount int
	countErr    error
	countCalls  int
}

func (s *fakeJobStore) Create(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	job.ID = platform.NewID("job")
	job.Status = model.JobPending
	s.created = append(s.created, *job)
	return nil
}

func (s *fakeJobStore) CountActiveByNode(ctx context.Context, nodeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.nodeCounts[nodeID], nil
}

func (s *fakeJobStore) CountActiveByMesh(ctx context.Context, mesh string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.meshCount, nil
}

func (s *fakeJobStore) CountActiveGlobal(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.globalCount, nil
}

func (s *fakeJobStore) jobs() []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Job(nil), s.created...)
}

type fakeNodeStore struct {
	nodes []model.Node
	err   error
}

func (s *fakeNodeStore) ResolveTargets(ctx context.Context, targets model.TargetSet) ([]model.Node, error) {
	return s.nodes, s.err
}

type fakeQuarantineStore struct {
	ids []string
	err error
}

func (s *fakeQuarantineStore) ActiveNodeIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

type fakeWindowEvaluator struct {
	mu        sync.Mutex
	decisions []window.Decision
	calls     int
}

func (e *fakeWindowEvaluator) CanRun(ctx context.Context, schedule *model.Schedule, at time.Time) window.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if len(e.decisions) == 0 {
		return window.Decision{Allowed: true, Reason: "no maintenance windows referenced"}
	}
	d := e.decisions[0]
	e.decisions = e.decisions[1:]
	return d
}

func (e *fakeWindowEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, job *model.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
