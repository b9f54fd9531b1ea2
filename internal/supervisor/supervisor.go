// Package supervisor tracks the lifecycle of a benchmark launched as a
// subprocess: idle, warming, or running, plus liveness of the child.
// The platform's admin surface polls this state; the load engine never
// touches it.
package supervisor

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"
)

// Status is the supervisor's view of the benchmark process.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWarming Status = "warming"
	StatusRunning Status = "running"
)

// graceAfterDeadline is added to the configured duration before a
// still-"running" entry is forced back to idle. Covers PID reuse
// (a liveness probe seeing an unrelated process) and children that
// never exit.
const graceAfterDeadline = 10 * time.Second

// Clock supplies the current time. Injected so state transitions are
// testable without sleeping.
type Clock func() time.Time

// LivenessProbe reports whether the process with the given PID is
// still alive.
type LivenessProbe func(pid int) bool

// State is a point-in-time view of the supervisor.
type State struct {
	Status             Status
	TestName           string
	StartedAt          time.Time
	WarmupSeconds      float64
	ElapsedSeconds     float64
	ConfiguredDuration time.Duration
	ConfiguredVUs      int
	LastError          string
	PID                int
}

// Supervisor is an explicit state object: one instance owns the run
// state, with its clock and liveness probe injected rather than read
// from ambient globals.
type Supervisor struct {
	mu    sync.Mutex
	clock Clock
	alive LivenessProbe

	status    Status
	testName  string
	startedAt time.Time
	duration  time.Duration
	vus       int
	lastError string
	pid       int
}

// New creates an idle supervisor. Pass nil to use the real clock and a
// signal-0 liveness probe.
func New(clock Clock, alive LivenessProbe) *Supervisor {
	if clock == nil {
		clock = time.Now
	}
	if alive == nil {
		alive = pidAlive
	}
	return &Supervisor{
		clock:  clock,
		alive:  alive,
		status: StatusIdle,
	}
}

// Start records a newly launched benchmark child. Allowed from idle or
// from a warming entry for the same launch; it fails when another test
// is already in flight.
func (s *Supervisor) Start(testName string, pid int, duration time.Duration, vus int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		return fmt.Errorf("a test is already running: %s", s.testName)
	}

	s.status = StatusRunning
	s.testName = testName
	s.startedAt = s.clock()
	s.duration = duration
	s.vus = vus
	s.pid = pid
	s.lastError = ""
	return nil
}

// Warming marks the warmup phase before a launch, e.g. while seed data
// is being created.
func (s *Supervisor) Warming(testName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return fmt.Errorf("a test is already running: %s", s.testName)
	}
	s.status = StatusWarming
	s.testName = testName
	s.startedAt = s.clock()
	return nil
}

// Fail records a launch failure and returns to idle.
func (s *Supervisor) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.lastError = msg
	s.pid = 0
}

// State refreshes and returns the current view. A running entry whose
// child has died, or whose elapsed time exceeds the configured
// duration plus grace, is forced back to idle.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	if s.status == StatusRunning {
		stale := s.pid != 0 && !s.alive(s.pid)
		if !stale && s.duration > 0 {
			stale = now.Sub(s.startedAt) > s.duration+graceAfterDeadline
		}
		if stale {
			s.status = StatusIdle
			s.pid = 0
		}
	}

	view := State{
		Status:             s.status,
		TestName:           s.testName,
		StartedAt:          s.startedAt,
		ConfiguredDuration: s.duration,
		ConfiguredVUs:      s.vus,
		LastError:          s.lastError,
		PID:                s.pid,
	}

	elapsed := now.Sub(s.startedAt).Seconds()
	switch s.status {
	case StatusWarming:
		view.WarmupSeconds = elapsed
	case StatusRunning:
		// Cap at the configured duration so pollers never display an
		// elapsed time past the nominal end.
		view.ElapsedSeconds = elapsed
		if max := s.duration.Seconds(); s.duration > 0 && elapsed > max {
			view.ElapsedSeconds = max
		}
	}

	return view
}

// pidAlive is the default liveness probe: signal 0 checks existence
// without touching the process.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
