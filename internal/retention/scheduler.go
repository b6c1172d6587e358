// Package retention implements the scheduled data-retention engine: a
// single-process polling scheduler and the sweep jobs it drives. It assumes
// exactly one running instance; there is no leader election, and a second
// instance would race on the same deletion sets.
package retention

import (
	"context"
	"time"

	"github.com/nexus-social/backend/internal/logger"
	"go.uber.org/zap"
)

// DefaultTick is how often the scheduler polls for due jobs.
const DefaultTick = time.Minute

// Job couples a sweep function with its trigger. RunAtStartup jobs execute
// once immediately when the scheduler starts, covering triggers missed
// while the process was down.
type Job struct {
	Name         string
	Trigger      Trigger
	RunAtStartup bool
	Run          func(ctx context.Context)
}

type scheduledJob struct {
	Job
	// last marks the end of the previous due-window for this job. Triggers
	// fire when their instant falls in (last, now].
	last time.Time
}

// Scheduler drives registered jobs from a single polling loop. Jobs run
// serially within a tick; two jobs never execute concurrently, and a
// long-running sweep simply delays the next due-check.
type Scheduler struct {
	jobs   []*scheduledJob
	tick   time.Duration
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tick:   tick,
		now:    func() time.Time { return time.Now().UTC() },
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, &scheduledJob{Job: job})
	logger.Log.Info("retention job registered",
		logger.WithJob(job.Name),
		zap.String("trigger", job.Trigger.Describe()),
		zap.Bool("run_at_startup", job.RunAtStartup),
	)
}

// Start launches the polling loop in the background.
func (s *Scheduler) Start() {
	logger.Log.Info("starting retention scheduler", zap.Duration("tick", s.tick))
	go s.run()
}

// Stop cancels the loop. A sweep already executing runs to completion of
// its claimed batch; the loop only exits between ticks.
func (s *Scheduler) Stop() {
	logger.Log.Info("stopping retention scheduler")
	s.cancel()
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	start := s.now()
	for _, job := range s.jobs {
		job.last = start
	}

	// Startup pass: re-run the designated sweeps once immediately to pick
	// up work missed or interrupted by a prior shutdown.
	for _, job := range s.jobs {
		if !job.RunAtStartup {
			continue
		}
		if s.ctx.Err() != nil {
			return
		}
		logger.Log.Info("running startup sweep", logger.WithJob(job.Name))
		job.Run(s.ctx)
		job.last = s.now()
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runPending(s.now())
		case <-s.ctx.Done():
			return
		}
	}
}

// runPending fires every job whose trigger is due, serially in
// registration order.
func (s *Scheduler) runPending(now time.Time) {
	for _, job := range s.jobs {
		if s.ctx.Err() != nil {
			return
		}
		if !job.Trigger.Due(job.last, now) {
			continue
		}
		logger.Log.Info("running sweep", logger.WithJob(job.Name))
		job.Run(s.ctx)
		job.last = now
	}
}
