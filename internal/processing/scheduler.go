package processing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"torn_war_bot/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Job is a periodic task
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker. A job never overlaps itself: a
// tick that arrives while the previous run is still in progress is skipped.
type Scheduler struct {
	jobs    []*scheduledJob
	metrics *metrics.Metrics
}

type scheduledJob struct {
	Job
	running atomic.Bool
}

// NewScheduler creates a scheduler. m may be nil.
func NewScheduler(m *metrics.Metrics, jobs ...Job) *Scheduler {
	s := &Scheduler{metrics: m}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &scheduledJob{Job: j})
	}
	return s
}

// Run executes every job once immediately and then on its interval until ctx
// is cancelled. It returns after in-flight runs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	var inflight sync.WaitGroup
	g, ctx := errgroup.WithContext(ctx)

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			log.Warn().Str("job", job.Name).Msg("Job has no interval, not scheduling")
			continue
		}

		g.Go(func() error {
			log.Info().
				Str("job", job.Name).
				Dur("interval", job.Interval).
				Msg("Starting scheduled job")

			s.trigger(ctx, job, &inflight)

			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.trigger(ctx, job, &inflight)
				}
			}
		})
	}

	err := g.Wait()
	inflight.Wait()
	return err
}

// RunOnce runs every job a single time in registration order
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		job.running.Store(true)
		s.execute(ctx, job)
	}
}

// trigger starts a run unless the previous one is still in progress
func (s *Scheduler) trigger(ctx context.Context, job *scheduledJob, inflight *sync.WaitGroup) bool {
	if !job.running.CompareAndSwap(false, true) {
		log.Warn().Str("job", job.Name).Msg("Previous run still in progress, skipping tick")
		if s.metrics != nil {
			s.metrics.SkippedTicks.WithLabelValues(job.Name).Inc()
		}
		return false
	}

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		s.execute(ctx, job)
	}()
	return true
}

// execute runs the job and clears its running flag. The flag must already
// be set by the caller.
func (s *Scheduler) execute(ctx context.Context, job *scheduledJob) {
	defer job.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", job.Name).Msg("Scheduled job panicked")
		}
	}()

	start := time.Now()
	log.Debug().Str("job", job.Name).Msg("Starting job run")

	err := job.Run(ctx)

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.JobDuration.WithLabelValues(job.Name).Observe(duration.Seconds())
	}
	if err != nil {
		log.Warn().Err(err).Str("job", job.Name).Dur("duration", duration).Msg("Job run failed, retrying next tick")
		return
	}
	log.Debug().Str("job", job.Name).Dur("duration", duration).Msg("Completed job run")
}
