package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"torn_war_bot/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSchedulerSkipsOverlappingTick(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var runs atomic.Int32

	m := metrics.New()
	s := NewScheduler(m, Job{
		Name:     "war_poll",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			started <- struct{}{}
			<-release
			return nil
		},
	})
	job := s.jobs[0]
	ctx := context.Background()
	var inflight sync.WaitGroup

	if !s.trigger(ctx, job, &inflight) {
		t.Fatal("Expected first tick to start a run")
	}
	<-started

	if s.trigger(ctx, job, &inflight) {
		t.Fatal("Expected overlapping tick to be skipped")
	}

	close(release)
	inflight.Wait()

	if !s.trigger(ctx, job, &inflight) {
		t.Fatal("Expected a tick after completion to run")
	}
	inflight.Wait()

	if got := runs.Load(); got != 2 {
		t.Errorf("Expected 2 runs, got %d", got)
	}
	if got := testutil.ToFloat64(m.SkippedTicks.WithLabelValues("war_poll")); got != 1 {
		t.Errorf("Expected 1 skipped tick, got %v", got)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	s := NewScheduler(nil, Job{
		Name:     "target_scan",
		Interval: time.Millisecond,
		Run: func(ctx context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler did not stop after cancellation")
	}

	if runs.Load() < 3 {
		t.Errorf("Expected at least 3 runs, got %d", runs.Load())
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	var order []string
	s := NewScheduler(nil,
		Job{Name: "war_poll", Interval: time.Minute, Run: func(ctx context.Context) error {
			order = append(order, "war_poll")
			return errors.New("upstream unavailable")
		}},
		Job{Name: "panicky", Interval: time.Minute, Run: func(ctx context.Context) error {
			order = append(order, "panicky")
			panic("boom")
		}},
		Job{Name: "target_scan", Interval: time.Minute, Run: func(ctx context.Context) error {
			order = append(order, "target_scan")
			return nil
		}},
	)

	s.RunOnce(context.Background())

	if len(order) != 3 || order[0] != "war_poll" || order[1] != "panicky" || order[2] != "target_scan" {
		t.Errorf("Expected jobs in registration order, got %v", order)
	}
	for _, job := range s.jobs {
		if job.running.Load() {
			t.Errorf("Expected %s to be idle after its run", job.Name)
		}
	}
}
