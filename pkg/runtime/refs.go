package runtime

import (
	"fmt"
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/tag"
)

// PortRef is a type-erased handle to one of a reaction's use or effect
// ports, assembled by the scheduler in declaration order before the
// reaction body runs. It carries enough to be re-typed by Input/Output
// below, and panics loudly if the caller asks for the wrong element type:
// that mismatch can only come from a builder bug, never from user input.
type PortRef struct {
	env *Env
	key keys.RuntimePortKey
}

// NewPortRef builds a PortRef for key within env. Exported for pkg/scheduler,
// which is the only other package that assembles these.
func NewPortRef(env *Env, key keys.RuntimePortKey) PortRef {
	return PortRef{env: env, key: key}
}

func (r PortRef) port() *RuntimePort {
	return r.env.Ports.MustGet(r.key)
}

// InputRef is a typed, read-only view of an input port for one reaction
// invocation.
type InputRef[T any] struct {
	port *RuntimePort
}

// Get returns the port's current value and whether it is present this tag.
func (r InputRef[T]) Get() (T, bool) {
	var zero T
	if !r.port.Present {
		return zero, false
	}
	v, ok := r.port.Value.(T)
	if !ok {
		panic(fmt.Sprintf("runtime: port %q holds %T, not %T", r.port.Name, r.port.Value, zero))
	}
	return v, true
}

// IsPresent reports whether the port was written this tag.
func (r InputRef[T]) IsPresent() bool { return r.port.Present }

// OutputRef is a typed, write-only view of an output port for one reaction
// invocation. Set marks the port present for the remainder of the tag and
// records it as dirty so the scheduler can fan out to port_triggers.
type OutputRef[T any] struct {
	port *RuntimePort
	key  keys.RuntimePortKey
	ctx  *Context
}

// Set writes v to the port and schedules its downstream triggers.
func (r OutputRef[T]) Set(v T) {
	r.port.Value = v
	r.port.Present = true
	r.ctx.recordSetPort(r.key)
}

// Input re-types refs[i] as an input port of element type T. Panics if i is
// out of range; Get panics if the port's value is not a T — an integrator
// bug per the reaction-partitioning design, not something user code recovers
// from. A bound input shares its canonical source's runtime port, so the
// port's own Direction is not checked.
func Input[T any](refs []PortRef, i int) InputRef[T] {
	if i < 0 || i >= len(refs) {
		panic(fmt.Sprintf("runtime: port index %d out of range (have %d)", i, len(refs)))
	}
	p := refs[i].port()
	return InputRef[T]{port: p}
}

// Output re-types refs[i] as an output port of element type T. ctx must be
// the Context for the in-progress reaction invocation, so writes are
// recorded against it.
func Output[T any](ctx *Context, refs []PortRef, i int) OutputRef[T] {
	if i < 0 || i >= len(refs) {
		panic(fmt.Sprintf("runtime: port index %d out of range (have %d)", i, len(refs)))
	}
	p := refs[i].port()
	return OutputRef[T]{port: p, key: refs[i].key, ctx: ctx}
}

// ActionRef is a type-erased handle to one of a reaction's triggering or
// schedulable actions, re-typed via ActionHandle below.
type ActionRef struct {
	env *Env
	key keys.RuntimeActionKey
	ctx *Context
}

// NewActionRef builds an ActionRef for key within env, bound to ctx for
// scheduling. Exported for pkg/scheduler.
func NewActionRef(env *Env, key keys.RuntimeActionKey, ctx *Context) ActionRef {
	return ActionRef{env: env, key: key, ctx: ctx}
}

// ActionHandle is a typed view of one action for one reaction invocation.
type ActionHandle[T any] struct {
	env *Env
	key keys.RuntimeActionKey
	ctx *Context
}

// Action re-types refs[i] as an action of payload type T.
func Action[T any](refs []ActionRef, i int) ActionHandle[T] {
	if i < 0 || i >= len(refs) {
		panic(fmt.Sprintf("runtime: action index %d out of range (have %d)", i, len(refs)))
	}
	return ActionHandle[T]{env: refs[i].env, key: refs[i].key, ctx: refs[i].ctx}
}

// Get returns the payload delivered to this invocation for the action, if
// the action is one of the current tag's triggers.
func (h ActionHandle[T]) Get() (T, bool) {
	var zero T
	v, ok := h.ctx.actionValues[h.key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("runtime: action payload is %T, not %T", v, zero))
	}
	return t, true
}

// Schedule buffers a future event carrying payload, to be materialized once
// the reaction body returns and the scheduler drains the Context's trigger
// results. delay defaults to the action's own min_delay when nil.
func (h ActionHandle[T]) Schedule(payload T, delay *time.Duration) {
	h.ctx.scheduleAction(h.env, h.key, payload, delay)
}

// Tag returns the logical tag at which a schedule with the given delay
// (nil meaning the action's configured min_delay) would be delivered,
// without actually scheduling it.
func (h ActionHandle[T]) Tag(delay *time.Duration) tag.Tag {
	return h.ctx.actionTag(h.env, h.key, delay)
}
