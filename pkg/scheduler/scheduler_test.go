package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/cuemby/reactix/pkg/builder"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clockObservation struct {
	clock        uint32
	timerPresent bool
	aPresent     bool
}

// TestTimerAndLogicalActionScenario exercises a timer coexisting with two
// logical actions on independent schedules: a reaction triggered by one
// action reads the delivered state of the other two without triggering on
// them, asserting presence differs tag by tag.
func TestTimerAndLogicalActionScenario(t *testing.T) {
	b := builder.New()
	reactor, err := b.AddReactor("main", nil, nil)
	require.NoError(t, err)

	timerKey, err := b.AddTimer("t", 2*time.Millisecond, 2*time.Millisecond, reactor)
	require.NoError(t, err)
	clockKey, err := builder.AddLogicalAction[uint32](b, "clock", 0, reactor)
	require.NoError(t, err)
	aKey, err := builder.AddLogicalAction[struct{}](b, "a", 0, reactor)
	require.NoError(t, err)

	startupAction, err := b.ResolveAction("main.startup")
	require.NoError(t, err)
	shutdownAction, err := b.ResolveAction("main.shutdown")
	require.NoError(t, err)

	startupBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		clock := runtime.Action[uint32](actions, 1)
		a := runtime.Action[struct{}](actions, 2)

		d1, d3, d5 := 1*time.Millisecond, 3*time.Millisecond, 5*time.Millisecond
		a.Schedule(struct{}{}, &d1)
		a.Schedule(struct{}{}, &d3)
		a.Schedule(struct{}{}, &d5)

		c2, c3, c4, c5 := 2*time.Millisecond, 3*time.Millisecond, 4*time.Millisecond, 5*time.Millisecond
		clock.Schedule(2, &c2)
		clock.Schedule(3, &c3)
		clock.Schedule(4, &c4)
		clock.Schedule(5, &c5)
	}
	startupRb, err := b.AddReaction("startup_sched", reactor, startupBody)
	require.NoError(t, err)
	_, err = startupRb.WithTriggerAction(startupAction).WithSchedulableAction(clockKey).WithSchedulableAction(aKey).Finish()
	require.NoError(t, err)

	var mu sync.Mutex
	var observations []clockObservation

	clockBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		clockVal, _ := runtime.Action[uint32](actions, 0).Get()
		_, timerPresent := runtime.Action[any](actions, 1).Get()
		_, aPresent := runtime.Action[any](actions, 2).Get()

		mu.Lock()
		observations = append(observations, clockObservation{clock: clockVal, timerPresent: timerPresent, aPresent: aPresent})
		mu.Unlock()
	}
	clockRb, err := b.AddReaction("on_clock", reactor, clockBody)
	require.NoError(t, err)
	_, err = clockRb.WithTriggerAction(clockKey).WithUseAction(timerKey).WithUseAction(aKey).Finish()
	require.NoError(t, err)

	var shutdownRan bool
	shutdownBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		shutdownRan = true
	}
	shutdownRb, err := b.AddReaction("on_shutdown", reactor, shutdownBody)
	require.NoError(t, err)
	_, err = shutdownRb.WithTriggerAction(shutdownAction).Finish()
	require.NoError(t, err)

	topo, err := b.Finish()
	require.NoError(t, err)
	require.Len(t, topo.Envs, 1)

	enclaves := topo.Assemble()
	enc := enclaves[keys.EnclaveKey(0)]
	require.NotNil(t, enc)

	timeout := 6 * time.Millisecond
	sched := New(keys.EnclaveKey(0), enc, Config{FastForward: true, Timeout: &timeout})
	sched.EventLoop()

	require.True(t, shutdownRan)
	require.Len(t, observations, 4)

	clocks := make([]uint32, len(observations))
	for i, obs := range observations {
		clocks[i] = obs.clock
	}
	assert.Equal(t, []uint32{2, 3, 4, 5}, clocks)

	// The timer fires at 2ms and 4ms (period 2ms from offset 2ms), coinciding
	// with clock's own 2ms and 4ms firings but not its 3ms and 5ms ones; `a`
	// fires at 1ms, 3ms, 5ms, the mirror image.
	assert.True(t, observations[0].timerPresent, "clock=2 expects the timer present")
	assert.False(t, observations[0].aPresent, "clock=2 expects a absent")
	assert.False(t, observations[1].timerPresent, "clock=3 expects the timer absent")
	assert.True(t, observations[1].aPresent, "clock=3 expects a present")
	assert.True(t, observations[2].timerPresent, "clock=4 expects the timer present")
	assert.False(t, observations[2].aPresent, "clock=4 expects a absent")
	assert.False(t, observations[3].timerPresent, "clock=5 expects the timer absent")
	assert.True(t, observations[3].aPresent, "clock=5 expects a present")
}

// TestSourceSinkPortsWithinOneEnclave exercises a plain two-reactor
// connection: a source reactor's output bound into a sink's input, the sink
// reaction triggering on the write and accumulating every value it saw.
func TestSourceSinkPortsWithinOneEnclave(t *testing.T) {
	b := builder.New()
	source, err := b.AddReactor("source", nil, nil)
	require.NoError(t, err)
	sink, err := b.AddReactor("sink", nil, nil)
	require.NoError(t, err)

	out, err := builder.AddOutputPort[int](b, "out", source)
	require.NoError(t, err)
	in, err := builder.AddInputPort[int](b, "in", sink)
	require.NoError(t, err)
	require.NoError(t, b.BindPort(out, in))

	startupAction, err := b.ResolveAction("source.startup")
	require.NoError(t, err)

	emitBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		runtime.Output[int](ctx, effectPorts, 0).Set(42)
	}
	emitRb, err := b.AddReaction("emit", source, emitBody)
	require.NoError(t, err)
	_, err = emitRb.WithTriggerAction(startupAction).WithEffectPort(out).Finish()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []int
	recvBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		v, ok := runtime.Input[int](usePorts, 0).Get()
		require.True(t, ok)
		mu.Lock()
		received = append(received, v)
		mu.Unlock()
	}
	recvRb, err := b.AddReaction("recv", sink, recvBody)
	require.NoError(t, err)
	_, err = recvRb.WithTriggerAndUsePort(in).Finish()
	require.NoError(t, err)

	topo, err := b.Finish()
	require.NoError(t, err)
	enclaves := topo.Assemble()
	enc := enclaves[keys.EnclaveKey(0)]
	require.NotNil(t, enc)

	sched := New(keys.EnclaveKey(0), enc, Config{FastForward: true})
	sched.EventLoop()

	assert.Equal(t, []int{42}, received)
}

// TestTwoEnclaveDelayedLinkDeliversAcrossSchedulers constructs a cross-enclave
// connection and runs both enclaves' schedulers concurrently via
// ExecuteEnclaves, asserting the downstream side sees the delayed value and
// both schedulers exit once the upstream terminates.
func TestTwoEnclaveDelayedLinkDeliversAcrossSchedulers(t *testing.T) {
	b := builder.New()
	source, err := b.AddReactor("source", nil, nil)
	require.NoError(t, err)
	sink, err := b.AddReactor("sink", nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.MarkEnclaveRoot(sink))

	out, err := builder.AddOutputPort[int](b, "out", source)
	require.NoError(t, err)
	in, err := builder.AddInputPort[int](b, "in", sink)
	require.NoError(t, err)
	require.NoError(t, b.BindPort(out, in))

	startupAction, err := b.ResolveAction("source.startup")
	require.NoError(t, err)

	emitBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		runtime.Output[int](ctx, effectPorts, 0).Set(7)
	}
	emitRb, err := b.AddReaction("emit", source, emitBody)
	require.NoError(t, err)
	_, err = emitRb.WithTriggerAction(startupAction).WithEffectPort(out).Finish()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []int
	recvBody := func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		v, ok := runtime.Input[int](usePorts, 0).Get()
		require.True(t, ok)
		mu.Lock()
		received = append(received, v)
		mu.Unlock()
	}
	recvRb, err := b.AddReaction("recv", sink, recvBody)
	require.NoError(t, err)
	_, err = recvRb.WithTriggerAndUsePort(in).Finish()
	require.NoError(t, err)

	topo, err := b.Finish()
	require.NoError(t, err)
	require.Len(t, topo.Envs, 2)
	require.Len(t, topo.Links, 1)

	enclaves := topo.Assemble()

	done := make(chan map[keys.EnclaveKey]*runtime.Env, 1)
	go func() {
		done <- ExecuteEnclaves(enclaves, Config{FastForward: true})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enclaves did not terminate")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{7}, received)
}
