package runner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the scheduler's observable mode.
type State int

const (
	// StateIdle means the queue was empty on the last poll and the loop is
	// waiting for work.
	StateIdle State = iota

	// StateProcessing means a batch of tasks is being worked through.
	StateProcessing

	// StatePaused means the loop is sleeping off a rate limit or a
	// loop-level failure before polling again.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default intervals for the parts of the loop the configuration does not
// cover.
const (
	DefaultIdleInterval     = 10 * time.Second
	DefaultRecoveryInterval = 60 * time.Second
)

// PendingLister is the slice of the task store the scheduler needs.
type PendingLister interface {
	ListPending() ([]string, error)
}

// TaskProcessor handles one task and directs the loop.
type TaskProcessor interface {
	Process(ctx context.Context, name string) Directive
}

// Options holds the scheduler's timing knobs.
type Options struct {
	// InterTaskDelay is slept between tasks of one batch, but not after the
	// last one.
	InterTaskDelay time.Duration

	// RateLimitPause is slept after a RateLimitPause directive before the
	// queue is re-listed.
	RateLimitPause time.Duration

	// IdleInterval is slept when a poll finds no tasks.
	// Zero means DefaultIdleInterval.
	IdleInterval time.Duration

	// RecoveryInterval is slept after a loop-level failure.
	// Zero means DefaultRecoveryInterval.
	RecoveryInterval time.Duration
}

// Scheduler is the top-level control loop: poll, process in order, delay,
// pause, repeat. Exactly one task is in flight at any time.
type Scheduler struct {
	store  PendingLister
	proc   TaskProcessor
	logger Logger
	clock  Clock
	opts   Options

	// wake ends an idle sleep early when the watcher sees a new file.
	// A nil channel blocks forever in select, so no watcher means plain
	// interval polling.
	wake <-chan struct{}

	mu    sync.Mutex
	state State
}

// NewScheduler wires a Scheduler. Nil logger and clock fall back to
// NopLogger and SystemClock.
func NewScheduler(store PendingLister, proc TaskProcessor, logger Logger, clock Clock, opts Options) *Scheduler {
	if logger == nil {
		logger = NopLogger{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.RecoveryInterval <= 0 {
		opts.RecoveryInterval = DefaultRecoveryInterval
	}
	return &Scheduler{
		store:  store,
		proc:   proc,
		logger: logger,
		clock:  clock,
		opts:   opts,
		state:  StateIdle,
	}
}

// SetWake installs a channel that cuts idle sleeps short. Must be called
// before Run.
func (s *Scheduler) SetWake(wake <-chan struct{}) {
	s.wake = wake
}

// State reports the scheduler's current mode.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run drives the loop until ctx is cancelled. The loop itself never exits:
// rate limits pause it, loop-level failures back off and resume, and only
// the interrupt-driven context stops it for good.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.safeCycle(ctx); err != nil {
			s.logger.LogError(fmt.Sprintf("critical error in main loop: %v", err))
			s.setState(StatePaused)
			s.logger.LogPause("recovery", s.opts.RecoveryInterval)
			s.sleep(ctx, s.opts.RecoveryInterval)
		}
	}
}

// safeCycle runs one poll cycle with panic containment, so a defect in task
// handling degrades into a recovery pause instead of killing the process.
func (s *Scheduler) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.cycle(ctx)
}

// cycle lists pending tasks and works through them in order. It returns on
// batch completion, on rate-limit pause (after sleeping it off), or on
// context cancellation; the caller re-lists either way since new tasks may
// have arrived.
func (s *Scheduler) cycle(ctx context.Context) error {
	tasks, err := s.store.ListPending()
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		s.setState(StateIdle)
		s.sleepIdle(ctx)
		return nil
	}

	s.setState(StateProcessing)
	s.logger.LogBatchStart(len(tasks))

	for i, name := range tasks {
		if ctx.Err() != nil {
			return nil
		}

		directive := s.proc.Process(ctx, name)

		if directive == RateLimitPause {
			s.setState(StatePaused)
			s.logger.LogPause("rate limit", s.opts.RateLimitPause)
			s.sleep(ctx, s.opts.RateLimitPause)
			s.logger.LogInfo("resuming after rate limit pause")
			return nil
		}

		if i < len(tasks)-1 && s.opts.InterTaskDelay > 0 {
			s.logger.LogPause("inter-task delay", s.opts.InterTaskDelay)
			if !s.sleep(ctx, s.opts.InterTaskDelay) {
				return nil
			}
		}
	}

	s.logger.LogInfo("task check cycle complete, looking for new tasks")
	return nil
}

// sleep blocks for d or until ctx is done. Returns false on cancellation.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}

// sleepIdle is sleep plus the watcher wake-up.
func (s *Scheduler) sleepIdle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(s.opts.IdleInterval):
	case <-s.wake:
		s.logger.LogDebug("woken by file watcher")
	}
}
