// Package scheduler runs fixed-delay periodic tasks, one goroutine per
// task, with a two-phase lifecycle: workers are registered first and
// then started together by one Start call; Register panics once Start
// has run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// Task is a unit of periodic work. A returned error is logged and
// swallowed by the inner catch; a panic escapes to the outer catch
// and is fatal.
type Task func(ctx context.Context) error

type job struct {
	name  string
	delay time.Duration
	task  Task
}

// Scheduler owns the goroutines backing every registered periodic task.
// It must not be copied after Register has been called.
type Scheduler struct {
	log     nlog.Logger
	mu      sync.Mutex
	jobs    []job
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(log nlog.Logger) *Scheduler {
	if log == nil {
		log = nlog.New("module", "scheduler")
	}
	return &Scheduler{log: log}
}

// Register adds a fixed-delay task. Must be called before Start.
func (s *Scheduler) Register(name string, delay time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("scheduler: Register called after Start")
	}
	s.jobs = append(s.jobs, job{name: name, delay: delay, task: task})
}

// Start launches every registered task on its own ticker. Calls after
// the first are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		j := j
		s.wg.Add(1)
		go s.run(ctx, j)
	}
}

// Stop signals every worker to exit and waits for them to return. There
// is no per-worker cancellation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, j job) {
	defer s.wg.Done()
	log := s.log.New("worker", j.name)

	// Outer catch: any panic reaching here is the fatal fence. A
	// production node logs the banner and exits; here we funnel the
	// recovered value back through Crit so the exit behavior is
	// consistent and overridable in tests.
	defer func() {
		if r := recover(); r != nil {
			log.Crit("worker panicked", "panic", fmt.Sprint(r))
		}
	}()

	ticker := time.NewTicker(j.delay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j, log)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job, log nlog.Logger) {
	// Inner catch: a returned error never kills the worker.
	defer func() {
		if r := recover(); r != nil {
			panic(r) // re-raise to the outer catch; a panic is not a normal error
		}
	}()
	if err := j.task(ctx); err != nil {
		log.Debug("task iteration failed", "err", err)
	}
}
