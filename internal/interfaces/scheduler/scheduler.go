package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	applog "fintrack/internal/shared/log"
)

// ScheduleTime is a time of day, in the process's local zone.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses HH:MM.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time %q (expected HH:MM): %w", s, err)
	}
	return ScheduleTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

type Config struct {
	ScheduleTimes []string
	RunOnStartup  bool
}

// Scheduler fires the job provider at fixed times of day and hands the
// resulting jobs to a WorkerPool. It checks the clock once a minute.
type Scheduler struct {
	pool          *WorkerPool
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   JobProvider
	logger        zerolog.Logger
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun string
}

func NewScheduler(cfg Config, pool *WorkerPool, provider JobProvider, logger zerolog.Logger) (*Scheduler, error) {
	if pool == nil || provider == nil {
		return nil, errors.New("scheduler requires a worker pool and a job provider")
	}

	times := make([]ScheduleTime, 0, len(cfg.ScheduleTimes))
	for _, s := range cfg.ScheduleTimes {
		st, err := ParseScheduleTime(s)
		if err != nil {
			return nil, err
		}
		times = append(times, st)
	}
	if len(times) == 0 {
		return nil, errors.New("at least one schedule time is required")
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].Hour != times[j].Hour {
			return times[i].Hour < times[j].Hour
		}
		return times[i].Minute < times[j].Minute
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:          pool,
		scheduleTimes: times,
		runOnStartup:  cfg.RunOnStartup,
		jobProvider:   provider,
		logger:        applog.Component(logger, applog.ComponentScheduler),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the schedule loop. The pool must already be started.
func (s *Scheduler) Start() {
	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunNow()
		}()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Strs("times", s.timeStrings()).
		Time("next_run", s.NextRun(s.now())).
		Msg("scheduler started")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.RunNow()
			}
		}
	}
}

// shouldRun reports whether now falls on a schedule time that has not
// fired yet today.
func (s *Scheduler) shouldRun(now time.Time) bool {
	key := now.Format("2006-01-02T15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}
	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

// RunNow asks the provider for jobs and submits them.
func (s *Scheduler) RunNow() int {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch jobs")
		return 0
	}
	if len(jobs) == 0 {
		s.logger.Info().Msg("no jobs to process")
		return 0
	}
	return s.pool.SubmitBatch(jobs)
}

// NextRun returns the first schedule time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	for _, st := range s.scheduleTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if t.After(now) {
			return t
		}
	}
	st := s.scheduleTimes[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), st.Hour, st.Minute, 0, 0, now.Location())
}

func (s *Scheduler) timeStrings() []string {
	out := make([]string, len(s.scheduleTimes))
	for i, st := range s.scheduleTimes {
		out[i] = st.String()
	}
	return out
}

// Stop ends the schedule loop, waiting up to timeout for an in-flight run.
// The pool is shut down separately by its owner.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
	case <-time.After(timeout):
		s.logger.Warn().Msg("timed out waiting for scheduler loop")
	}
}
