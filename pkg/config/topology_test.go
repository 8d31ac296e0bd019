package config

import (
	"testing"
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildTimerCounterForwardManifest exercises the full manifest walk: a
// timer drives a counter reaction that writes an output port, bound across
// reactors to an input port consumed by a log reaction.
func TestBuildTimerCounterForwardManifest(t *testing.T) {
	m := &Manifest{
		Reactors: []ReactorSpec{
			{
				Name:  "source",
				State: "counter",
				Actions: []ActionSpec{
					{Name: "tick", Kind: "timer", Period: durPtr("1ms"), Offset: durPtr("1ms")},
				},
				Ports: []PortSpec{{Name: "out", Direction: "output"}},
				Reactions: []ReactionSpec{
					{
						Name: "count",
						Body: "counter",
						Trigger: RelationSpec{Actions: []string{"source.tick"}},
						Effect:  RelationSpec{Ports: []string{"source.out"}},
					},
				},
			},
			{
				Name:  "sink",
				Ports: []PortSpec{{Name: "in", Direction: "input"}},
				Reactions: []ReactionSpec{
					{
						Name:          "observe",
						Body:          "log",
						TriggerAndUse: RelationSpec{Ports: []string{"sink.in"}},
					},
				},
			},
		},
		Connections: []ConnectionSpec{
			{From: "source.out", To: "sink.in"},
		},
	}

	b, err := Build(m)
	require.NoError(t, err)

	topo, err := b.Finish()
	require.NoError(t, err)
	require.Len(t, topo.Envs, 1)

	enclaves := topo.Assemble()
	enc := enclaves[keys.EnclaveKey(0)]
	require.NotNil(t, enc)

	timeout := 5 * time.Millisecond
	sched := scheduler.New(keys.EnclaveKey(0), enc, scheduler.Config{FastForward: true, Timeout: &timeout})
	sched.EventLoop()
}

func TestSchedulerConfigToScheduler(t *testing.T) {
	d := Duration(2 * time.Second)
	c := SchedulerConfig{FastForward: true, KeepAlive: false, Timeout: &d}
	sc := c.ToScheduler()
	assert.True(t, sc.FastForward)
	require.NotNil(t, sc.Timeout)
	assert.Equal(t, 2*time.Second, *sc.Timeout)
}

func durPtr(s string) *Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	dd := Duration(d)
	return &dd
}
