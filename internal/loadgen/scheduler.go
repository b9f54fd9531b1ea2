package loadgen

import (
	"context"
	"sync"
	"time"

	"github.com/surgekit/surgekit/internal/client"
)

// Workload is any operation that, given a worker context, performs one
// attempt against the target and folds exactly one outcome into the
// worker's aggregator. The engine is generic over this capability;
// scenario packages supply the bodies.
type Workload func(ctx context.Context, wc *WorkerContext)

// WorkerContext is the per-worker view of the run's shared resources.
// It is created once per worker at spawn and read-only afterwards.
type WorkerContext struct {
	// VU is the worker's 0-based index, unique within the run.
	VU int

	// Client is the pooled network client shared by all workers.
	Client *client.Client

	// Config is the run's immutable configuration.
	Config *RunConfig

	// Metrics is the aggregator shared by all workers.
	Metrics *Aggregator
}

// Scheduler spawns and drives the concurrent workers of one run.
type Scheduler struct {
	cfg     *RunConfig
	client  *client.Client
	metrics *Aggregator
}

// NewScheduler creates a scheduler for one run. The aggregator it owns
// lives until the run's summary has been computed.
func NewScheduler(cfg *RunConfig, c *client.Client) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		client:  c,
		metrics: NewAggregator(),
	}
}

// Run spawns cfg.VUs workers, each driving a closed loop: check the
// deadline, invoke the workload, repeat immediately. There is no
// pacing, no retry and no backoff; a failed iteration is recorded by
// the workload and the loop continues.
//
// A worker that is mid-request when the deadline passes finishes that
// one in-flight call before exiting, so overshoot is bounded by one
// workload latency. Cancellation is cooperative only: the deadline and
// the context are re-checked between iterations, never mid-call.
//
// Run waits for every worker to exit and returns the shared aggregator
// together with the measured wall-clock elapsed time, which may differ
// from the nominal duration.
func (s *Scheduler) Run(ctx context.Context, workload Workload) (*Aggregator, time.Duration) {
	start := time.Now()
	deadline := start.Add(s.cfg.Duration)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.VUs; i++ {
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()

			wc := &WorkerContext{
				VU:      vu,
				Client:  s.client,
				Config:  s.cfg,
				Metrics: s.metrics,
			}

			for {
				// Deadline first: a zero duration performs zero iterations.
				if ctx.Err() != nil || !time.Now().Before(deadline) {
					return
				}
				workload(ctx, wc)
			}
		}(i)
	}

	wg.Wait()
	return s.metrics, time.Since(start)
}

// Metrics returns the run's shared aggregator, for live progress views
// while Run is still in flight.
func (s *Scheduler) Metrics() *Aggregator {
	return s.metrics
}
