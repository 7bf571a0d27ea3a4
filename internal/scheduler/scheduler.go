package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/timezone"
)

// Scheduler owns a registry of armed schedules, one timer loop per schedule.
// The registry is advisory: the persisted schedule rows are the source of
// truth and the registry is rebuilt from them on startup via ArmAll.
type Scheduler struct {
	schedules ScheduleStore
	windows   WindowEvaluator
	gate      *Gate
	projector *Projector
	logger    zerolog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	armed map[string]context.CancelFunc
}

func New(schedules ScheduleStore, windows WindowEvaluator, gate *Gate, projector *Projector, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		schedules: schedules,
		windows:   windows,
		gate:      gate,
		projector: projector,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		baseCtx:   ctx,
		stop:      cancel,
		armed:     make(map[string]context.CancelFunc),
	}
}

// ArmAll arms every enabled schedule. Schedules that fail to arm are logged
// and skipped so one bad definition cannot hold up startup.
func (s *Scheduler) ArmAll(ctx context.Context) (int, error) {
	list, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enabled schedules: %w", err)
	}

	armed := 0
	for i := range list {
		if err := s.Arm(&list[i]); err != nil {
			s.logger.Warn().Err(err).Str("schedule_id", list[i].ID).Str("name", list[i].Name).Msg("schedule failed to arm")
			continue
		}
		armed++
	}
	s.logger.Info().Int("armed", armed).Int("total", len(list)).Msg("schedules armed")
	return armed, nil
}

// Arm creates or replaces the timer loop for a schedule. The definition is
// validated here so administrative updates surface bad expressions at once.
func (s *Scheduler) Arm(schedule *model.Schedule) error {
	spec, err := ParseSpec(schedule.CronExpr)
	if err != nil {
		return fmt.Errorf("arm schedule %s: %w", schedule.ID, err)
	}
	loc, err := timezone.Load(schedule.Timezone)
	if err != nil {
		return fmt.Errorf("arm schedule %s: %w", schedule.ID, err)
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	if prev, ok := s.armed[schedule.ID]; ok {
		prev()
	}
	s.armed[schedule.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runLoop(ctx, schedule.ID, spec, loc)
	return nil
}

// Disarm stops a schedule's timer loop, if armed.
func (s *Scheduler) Disarm(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.armed[scheduleID]; ok {
		cancel()
		delete(s.armed, scheduleID)
	}
}

// Armed reports whether a schedule currently has a live timer loop.
func (s *Scheduler) Armed(scheduleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[scheduleID]
	return ok
}

// Close stops every timer loop and waits for in-flight evaluations.
func (s *Scheduler) Close() {
	s.stop()
	s.wg.Wait()
	s.mu.Lock()
	s.armed = make(map[string]context.CancelFunc)
	s.mu.Unlock()
}

// TriggerNow runs a schedule's projection immediately, bypassing the window
// and dependency gates and any jitter. Concurrency limits and quarantine
// still apply. Returns how many jobs were created.
func (s *Scheduler) TriggerNow(ctx context.Context, scheduleID string) (int, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return 0, err
	}

	created, err := s.projector.Project(ctx, schedule)
	if err != nil {
		return created, err
	}
	metrics.ScheduleFires.WithLabelValues("manual").Inc()

	now := time.Now()
	next, err := ComputeNextRun(schedule, now)
	if err != nil {
		next = nil
	}
	if err := s.schedules.RecordRun(ctx, schedule.ID, now, next); err != nil {
		s.logger.Error().Err(err).Str("schedule_id", schedule.ID).Msg("record manual run failed")
	}
	return created, nil
}

// runLoop sleeps until each computed fire instant and evaluates the schedule
// there. It persists nextRun every iteration so the stored row always shows
// the upcoming instant, whatever the last evaluation decided.
func (s *Scheduler) runLoop(ctx context.Context, scheduleID string, spec cron.Schedule, loc *time.Location) {
	defer s.wg.Done()

	for {
		next := spec.Next(time.Now().In(loc))
		if next.IsZero() {
			s.logger.Info().Str("schedule_id", scheduleID).Msg("cron expression yields no future instants")
			if err := s.schedules.UpdateNextRun(ctx, scheduleID, nil); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn().Err(err).Str("schedule_id", scheduleID).Msg("clear next run failed")
			}
			return
		}
		if err := s.schedules.UpdateNextRun(ctx, scheduleID, &next); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Str("schedule_id", scheduleID).Msg("persist next run failed")
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.evaluate(ctx, scheduleID, next, evalOptions{})
		}
	}
}

// evalOptions control which gates a particular evaluation passes through.
type evalOptions struct {
	// skipWindow is set on the deferred re-run of an immediate-policy
	// schedule. The window was already waited out once; re-checking would
	// turn immediate into queue.
	skipWindow bool
}

// evaluate is the firing pipeline: reload, window gate, dependency gate,
// jitter, projection, bookkeeping. Every failure is logged and swallowed;
// the next cron tick is the retry.
func (s *Scheduler) evaluate(ctx context.Context, scheduleID string, fireTime time.Time, opts evalOptions) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info().Str("schedule_id", scheduleID).Msg("schedule deleted, disarming")
			s.Disarm(scheduleID)
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.ScheduleFires.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("schedule_id", scheduleID).Msg("reload schedule failed")
		return
	}
	if !schedule.Enabled {
		s.logger.Debug().Str("schedule_id", scheduleID).Msg("schedule disabled, skipping firing")
		return
	}

	if !opts.skipWindow {
		decision := s.windows.CanRun(ctx, schedule, fireTime)
		if !decision.Allowed {
			metrics.ScheduleFires.WithLabelValues("blocked").Inc()
			s.logger.Info().
				Str("schedule_id", schedule.ID).
				Str("name", schedule.Name).
				Str("reason", decision.Reason).
				Str("missed_job_policy", schedule.MissedJobPolicy).
				Msg("firing blocked by maintenance window")

			switch schedule.MissedJobPolicy {
			case model.MissedJobQueue:
				s.deferEvaluation(ctx, schedule.ID, decision.BlockedUntil, false)
			case model.MissedJobImmediate:
				s.deferEvaluation(ctx, schedule.ID, decision.BlockedUntil, true)
			}
			return
		}
	}

	if met, reason := s.gate.DependenciesMet(ctx, schedule); !met {
		metrics.ScheduleFires.WithLabelValues("dependencies_unmet").Inc()
		s.logger.Info().Str("schedule_id", schedule.ID).Str("reason", reason).Msg("dependencies unmet, skipping firing")
		return
	}

	if schedule.JitterSeconds > 0 {
		delay := time.Duration(rand.Int64N(int64(schedule.JitterSeconds)*1000)) * time.Millisecond
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	created, err := s.projector.Project(ctx, schedule)
	if err != nil {
		metrics.ScheduleFires.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("schedule_id", schedule.ID).Int("jobs", created).Msg("projection failed")
		return
	}
	metrics.ScheduleFires.WithLabelValues("fired").Inc()

	next, err := ComputeNextRun(schedule, time.Now())
	if err != nil {
		next = nil
	}
	if err := s.schedules.RecordRun(ctx, schedule.ID, fireTime, next); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Str("schedule_id", schedule.ID).Msg("record run failed")
	}
	s.logger.Info().Str("schedule_id", schedule.ID).Str("name", schedule.Name).Int("jobs", created).Msg("schedule fired")
}

// deferEvaluation re-runs the pipeline shortly after the blocking window
// closes. Deferrals live in memory only; a restart drops them and the next
// natural tick takes over.
func (s *Scheduler) deferEvaluation(ctx context.Context, scheduleID string, until time.Time, skipWindow bool) {
	if until.IsZero() {
		return
	}
	at := until.Add(time.Second)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(time.Until(at))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.evaluate(ctx, scheduleID, time.Now(), evalOptions{skipWindow: skipWindow})
		}
	}()

	s.logger.Info().
		Str("schedule_id", scheduleID).
		Time("resume_at", at).
		Bool("window_recheck", !skipWindow).
		Msg("firing deferred until window closes")
}
