package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/powergrid-labs/blackoutd/core/logger"
)

// Applier commits scheduler-driven progress into incident and zone state.
// Implemented by the incident manager.
type Applier interface {
	// ApplyRecoveryProgress advances the incident to the given overall
	// progress (0-100). elapsedHours is the simulated time passed since the
	// previous tick, used to drain backup reserves. It returns true when the
	// incident is fully recovered or no longer live, which stops the task.
	ApplyRecoveryProgress(incidentID string, progress, elapsedHours float64) bool
}

// Config defines scheduler timing parameters.
type Config struct {
	// TickInterval is the wall-clock period between recovery ticks.
	TickIntervalMS int `json:"tick_interval_ms"`
	// SecondsPerHour compresses simulated time: one simulated hour of the
	// recovery window elapses in this many wall seconds.
	SecondsPerHour float64 `json:"seconds_per_hour"`
}

// SetDefaults applies sane defaults for interactive use.
func (c *Config) SetDefaults() {
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = 500
	}
	if c.SecondsPerHour <= 0 {
		c.SecondsPerHour = 5
	}
}

// Scheduler runs one recovery task per live incident. Tasks are the only
// suspending operations in the system; everything else is local computation.
type Scheduler struct {
	cfg   Config
	clock Clock
	log   logger.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler. A nil clock defaults to the system clock.
func NewScheduler(cfg Config, clock Clock, log logger.Logger) *Scheduler {
	cfg.SetDefaults()
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{cfg: cfg, clock: clock, log: log, tasks: make(map[string]*task)}
}

// Start launches the recovery task for an incident. The task advances
// progress from 0 to 100 over recoveryHours of simulated time and stops when
// the applier reports completion or the context is canceled. Starting an
// incident that already has a task replaces the old task.
func (s *Scheduler) Start(ctx context.Context, incidentID string, recoveryHours float64, apply Applier) {
	if recoveryHours <= 0 {
		recoveryHours = 1
	}
	total := time.Duration(recoveryHours * s.cfg.SecondsPerHour * float64(time.Second))

	s.mu.Lock()
	if old, ok := s.tasks[incidentID]; ok {
		old.cancel()
	}
	tctx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[incidentID] = t
	s.mu.Unlock()

	go s.run(tctx, t, incidentID, recoveryHours, total, apply)
}

func (s *Scheduler) run(ctx context.Context, t *task, incidentID string, recoveryHours float64, total time.Duration, apply Applier) {
	defer close(t.done)
	defer s.remove(incidentID, t)

	ticker := time.NewTicker(time.Duration(s.cfg.TickIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	start := s.clock.Now()
	lastProgress := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := s.clock.Now().Sub(start)
			progress := 100 * float64(elapsed) / float64(total)
			if progress > 100 {
				progress = 100
			}
			if progress < lastProgress {
				progress = lastProgress
			}
			elapsedHours := recoveryHours * (progress - lastProgress) / 100
			lastProgress = progress
			if apply.ApplyRecoveryProgress(incidentID, progress, elapsedHours) {
				if s.log != nil {
					s.log.Infof("recovery task for %s finished", incidentID)
				}
				return
			}
		}
	}
}

func (s *Scheduler) remove(incidentID string, t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[incidentID]; ok && cur == t {
		delete(s.tasks, incidentID)
	}
	s.mu.Unlock()
}

// Stop cancels the task for an incident and waits for it to exit, so no
// further ticks are observable after Stop returns.
func (s *Scheduler) Stop(incidentID string) {
	s.mu.Lock()
	t, ok := s.tasks[incidentID]
	s.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// StopAll cancels every running task and waits for them to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()
	for _, t := range tasks {
		t.cancel()
		<-t.done
	}
}
