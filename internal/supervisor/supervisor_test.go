package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestSupervisor(alive LivenessProbe) (*Supervisor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(clock.Now, alive), clock
}

func TestLifecycle(t *testing.T) {
	sup, clock := newTestSupervisor(func(int) bool { return true })

	assert.Equal(t, StatusIdle, sup.State().Status)

	require.NoError(t, sup.Warming("rest-read"))
	clock.Advance(3 * time.Second)

	state := sup.State()
	assert.Equal(t, StatusWarming, state.Status)
	assert.Equal(t, "rest-read", state.TestName)
	assert.InDelta(t, 3.0, state.WarmupSeconds, 1e-9)
	assert.Zero(t, state.ElapsedSeconds)

	require.NoError(t, sup.Start("rest-read", 4242, 30*time.Second, 50))
	clock.Advance(10 * time.Second)

	state = sup.State()
	assert.Equal(t, StatusRunning, state.Status)
	assert.Equal(t, 4242, state.PID)
	assert.Equal(t, 30*time.Second, state.ConfiguredDuration)
	assert.Equal(t, 50, state.ConfiguredVUs)
	assert.InDelta(t, 10.0, state.ElapsedSeconds, 1e-9)
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	sup, _ := newTestSupervisor(func(int) bool { return true })

	require.NoError(t, sup.Start("rest-read", 100, 30*time.Second, 10))

	err := sup.Start("graphql-read", 101, 30*time.Second, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rest-read")
}

func TestWarming_RejectsWhenBusy(t *testing.T) {
	sup, _ := newTestSupervisor(func(int) bool { return true })

	require.NoError(t, sup.Warming("rest-update"))
	assert.Error(t, sup.Warming("rest-write"))
}

func TestFail_ReturnsToIdleWithError(t *testing.T) {
	sup, _ := newTestSupervisor(func(int) bool { return true })

	require.NoError(t, sup.Warming("blob-retrieval"))
	sup.Fail("seed data creation failed")

	state := sup.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Equal(t, "seed data creation failed", state.LastError)
	assert.Zero(t, state.PID)

	require.NoError(t, sup.Start("blob-retrieval", 7, 30*time.Second, 10))
	assert.Empty(t, sup.State().LastError, "a fresh start clears the last error")
}

func TestState_DeadChildForcesIdle(t *testing.T) {
	alive := true
	sup, clock := newTestSupervisor(func(int) bool { return alive })

	require.NoError(t, sup.Start("ws", 999, 60*time.Second, 20))
	clock.Advance(5 * time.Second)
	assert.Equal(t, StatusRunning, sup.State().Status)

	alive = false
	state := sup.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Zero(t, state.PID)

	require.NoError(t, sup.Start("sse", 1000, 60*time.Second, 20))
}

func TestState_GraceTimeoutForcesIdle(t *testing.T) {
	sup, clock := newTestSupervisor(func(int) bool { return true })

	require.NoError(t, sup.Start("rest-read", 999, 30*time.Second, 10))

	clock.Advance(30*time.Second + graceAfterDeadline)
	assert.Equal(t, StatusRunning, sup.State().Status, "exactly at the grace edge is still running")

	clock.Advance(time.Second)
	assert.Equal(t, StatusIdle, sup.State().Status)
}

func TestState_ElapsedCappedAtDuration(t *testing.T) {
	sup, clock := newTestSupervisor(func(int) bool { return true })

	require.NoError(t, sup.Start("rest-read", 999, 30*time.Second, 10))
	clock.Advance(35 * time.Second)

	state := sup.State()
	assert.Equal(t, StatusRunning, state.Status)
	assert.InDelta(t, 30.0, state.ElapsedSeconds, 1e-9)
}
