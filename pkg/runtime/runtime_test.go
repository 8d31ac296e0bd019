package runtime

import (
	"reflect"
	"testing"
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/tag"
	"github.com/cuemby/reactix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortWriteRecordsSetPort(t *testing.T) {
	env := NewEnv()
	reactor := env.Reactors.Add(&RuntimeReactor{Name: "main"})
	out := env.Ports.Add(&RuntimePort{Name: "o", Reactor: reactor, Direction: types.Output, ElemType: reflect.TypeOf(0)})

	ctx := NewContext()
	ctx.Reset(tag.ZERO, time.Now(), nil)

	o := Output[int](ctx, []PortRef{NewPortRef(env, out)}, 0)
	o.Set(42)

	assert.True(t, env.Ports.MustGet(out).Present)
	require.Len(t, ctx.Result().SetPorts, 1)
	assert.Equal(t, out, ctx.Result().SetPorts[0])
}

func TestInputAbsentByDefault(t *testing.T) {
	env := NewEnv()
	reactor := env.Reactors.Add(&RuntimeReactor{Name: "main"})
	in := env.Ports.Add(&RuntimePort{Name: "i", Reactor: reactor, Direction: types.Input, ElemType: reflect.TypeOf(0)})

	i := Input[int]([]PortRef{NewPortRef(env, in)}, 0)
	v, present := i.Get()
	assert.False(t, present)
	assert.Equal(t, 0, v)
}

func TestActionScheduleAndRetrieve(t *testing.T) {
	env := NewEnv()
	reactor := env.Reactors.Add(&RuntimeReactor{Name: "main"})
	act := env.Actions.Add(&RuntimeAction{Name: "a", Reactor: reactor, Kind: types.ActionStandard, IsLogical: true, MinDelay: time.Millisecond, ElemType: reflect.TypeOf(0)})

	ctx := NewContext()
	ctx.Reset(tag.ZERO, time.Now(), nil)

	h := Action[int]([]ActionRef{NewActionRef(env, act, ctx)}, 0)
	h.Schedule(7, nil)

	require.Len(t, ctx.Result().ScheduledActions, 1)
	sched := ctx.Result().ScheduledActions[0]
	assert.Equal(t, tag.ZERO.Delay(time.Millisecond), sched.Tag)
	assert.Equal(t, 7, sched.Value)
}

func TestActionGetReadsDeliveredPayload(t *testing.T) {
	env := NewEnv()
	reactor := env.Reactors.Add(&RuntimeReactor{Name: "main"})
	act := env.Actions.Add(&RuntimeAction{Name: "a", Reactor: reactor, Kind: types.ActionStandard, IsLogical: true})

	ctx := NewContext()
	ctx.Reset(tag.ZERO, time.Now(), map[keys.RuntimeActionKey]any{act: 99})

	h := Action[int]([]ActionRef{NewActionRef(env, act, ctx)}, 0)
	v, present := h.Get()
	assert.True(t, present)
	assert.Equal(t, 99, v)
}

func TestRuntimeActionTakeRemovesMatchingTag(t *testing.T) {
	a := &RuntimeAction{Name: "a"}
	a.Schedule(tag.ZERO.Delay(time.Millisecond), "x")
	a.Schedule(tag.ZERO.Delay(2*time.Millisecond), "y")

	v, ok := a.Take(tag.ZERO.Delay(time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Len(t, a.Pending, 1)

	_, ok = a.Take(tag.ZERO.Delay(time.Millisecond))
	assert.False(t, ok)
}
