package loadgen

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

const (
	// recvTimeout bounds every blocking receive so a quiet stream can
	// still observe the deadline.
	recvTimeout = 5 * time.Second

	// connectGrace is how long the publisher waits before its first
	// emit, so subscribers have established their connections.
	connectGrace = 500 * time.Millisecond
)

// StreamConn is one persistent subscriber connection.
type StreamConn interface {
	// Recv waits up to timeout for inbound messages and returns one
	// payload size per message received. An empty result with a nil
	// error means the wait timed out with the connection still
	// healthy; that is neither a success nor an error. io.EOF reports
	// a clean end of stream. Any other error is a connection-level
	// failure.
	Recv(timeout time.Duration) ([]int64, error)

	// Close gracefully shuts the connection down.
	Close() error
}

// DialFunc opens one persistent connection for a subscriber worker.
type DialFunc func(ctx context.Context, wc *WorkerContext) (StreamConn, error)

// PublishFunc performs one publish attempt. The publisher is a traffic
// generator, not a measured client: its failures are discarded.
type PublishFunc func(ctx context.Context) error

// RunStream drives a persistent-connection subscribe workload in place
// of the closed-loop Run.
//
// One dedicated publisher loops publish attempts as fast as possible
// until the deadline, decoupled from the subscriber side. Concurrently
// cfg.VUs subscribers each dial one connection, then loop on a bounded
// receive: a timeout means "still connected, nothing to report"; each
// received message is one success with its payload size (latency is
// recorded as zero, it is not meaningful for a push message); a
// connection failure is one error and ends that subscriber. Every
// subscriber re-checks the deadline on each loop iteration, including
// after timeouts, and closes gracefully once past it.
//
// RunStream waits for the publisher and all subscribers before
// returning the aggregator and the measured elapsed time.
func (s *Scheduler) RunStream(ctx context.Context, dial DialFunc, publish PublishFunc) (*Aggregator, time.Duration) {
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
			s.runSubscriber(ctx, wc, dial, deadline)
		}(i)
	}

	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)

		if !waitForSubscribers(ctx, deadline) {
			return
		}
		for {
			if ctx.Err() != nil || !time.Now().Before(deadline) {
				return
			}
			_ = publish(ctx)
		}
	}()

	wg.Wait()
	<-pubDone
	return s.metrics, time.Since(start)
}

func (s *Scheduler) runSubscriber(ctx context.Context, wc *WorkerContext, dial DialFunc, deadline time.Time) {
	conn, err := dial(ctx, wc)
	if err != nil {
		s.metrics.RecordError()
		return
	}
	defer conn.Close()

	for {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return
		}

		msgs, err := conn.Recv(recvTimeout)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.metrics.RecordError()
			return
		}
		for _, size := range msgs {
			s.metrics.RecordSuccess(0, size)
		}
	}
}

// waitForSubscribers blocks for the connect grace period, capped at
// the deadline. Returns false if the run was cancelled meanwhile.
func waitForSubscribers(ctx context.Context, deadline time.Time) bool {
	wait := connectGrace
	if until := time.Until(deadline); until < wait {
		wait = until
	}
	if wait <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}
