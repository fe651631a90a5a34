// Package jobs runs the periodic background work of the service, such as
// forwarding queued audit events and provenance records.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TaskFunc is the work of one scheduled task.
type TaskFunc func(ctx context.Context) error

// Task is a named job with a cron schedule ("*/5 * * * *", "@every 1m").
type Task struct {
	Name     string
	Schedule string
	Run      TaskFunc
}

// TaskStats reports the history of a task.
type TaskStats struct {
	Name       string    `json:"name"`
	Schedule   string    `json:"schedule"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	NextRun    time.Time `json:"nextRun,omitempty"`
	RunCount   int64     `json:"runCount"`
	ErrorCount int64     `json:"errorCount"`
	LastError  string    `json:"lastError,omitempty"`
}

type entry struct {
	task    Task
	id      cron.EntryID
	stats   TaskStats
	running sync.Mutex
}

// Scheduler wraps a cron runner. Runs of the same task never overlap.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]*entry
}

func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger.With().Str("component", "jobs").Logger(),
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*entry),
	}
}

// Add registers a task. Names must be unique and schedules valid.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("task name and func are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.Name]; ok {
		return fmt.Errorf("task %s already exists", t.Name)
	}
	e := &entry{task: t, stats: TaskStats{Name: t.Name, Schedule: t.Schedule}}
	id, err := s.cron.AddFunc(t.Schedule, func() { s.execute(s.ctx, e) })
	if err != nil {
		return fmt.Errorf("schedule task %s: %w", t.Name, err)
	}
	e.id = id
	s.tasks[t.Name] = e
	return nil
}

func (s *Scheduler) execute(ctx context.Context, e *entry) error {
	if !e.running.TryLock() {
		s.logger.Debug().Str("task", e.task.Name).Msg("previous run still in progress, skipping")
		return nil
	}
	defer e.running.Unlock()

	start := time.Now()
	err := e.task.Run(ctx)

	s.mu.Lock()
	e.stats.LastRun = start
	e.stats.RunCount++
	if err != nil {
		e.stats.ErrorCount++
		e.stats.LastError = err.Error()
	} else {
		e.stats.LastError = ""
	}
	s.mu.Unlock()

	ev := s.logger.Debug()
	if err != nil {
		ev = s.logger.Warn().Err(err)
	}
	ev.Str("task", e.task.Name).Dur("duration", time.Since(start)).Msg("scheduled task finished")
	return err
}

// RunNow executes a task immediately on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	return s.execute(ctx, e)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("tasks", len(s.Stats())).Msg("scheduler started")
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Stats returns per-task history sorted by name.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStats, 0, len(s.tasks))
	for _, e := range s.tasks {
		st := e.stats
		st.NextRun = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
