package builder

import (
	"fmt"
	"time"

	"github.com/cuemby/reactix/pkg/builderr"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/cuemby/reactix/pkg/types"
)

// ConnectPorts binds src to sink, optionally through a synthesized delay or
// physical boundary. With neither after nor physical set it is exactly
// BindPort. Otherwise it builds a connection reactor, as a new child of
// src's and sink's shared parent, with one action and two reactions:
// "forward" reads src and schedules the action; "emit" is triggered by the
// action and writes sink. Both the src->in and out->sink bindings are
// ordinary Output-to-Input bindings, so they're validated by the same six
// rules as any user-declared connection.
func (b *Builder) ConnectPorts(src, sink keys.PortKey, after *time.Duration, physical bool) error {
	if after == nil && !physical {
		return b.BindPort(src, sink)
	}

	sdecl, ok := b.ports.Get(src)
	if !ok {
		return builderr.KeyNotFound("port", src)
	}
	kdecl, ok := b.ports.Get(sink)
	if !ok {
		return builderr.KeyNotFound("port", sink)
	}
	if sdecl.Direction != types.Output || kdecl.Direction != types.Input {
		return builderr.PortConnectionInvalid("delayed/physical connections require an output source and an input sink")
	}
	srcParent, srcHasParent := b.parentOf(sdecl.Reactor)
	sinkParent, sinkHasParent := b.parentOf(kdecl.Reactor)
	if !srcHasParent || !sinkHasParent || srcParent != sinkParent {
		return builderr.PortConnectionInvalid("delayed/physical connections require source and sink owners to share a parent")
	}

	delay := time.Duration(0)
	if after != nil {
		delay = *after
	}

	b.synthCount++
	connName := fmt.Sprintf("__connect%d", b.synthCount)
	connReactor, err := b.AddReactor(connName, &srcParent, nil)
	if err != nil {
		return err
	}

	inPort, err := b.addPort("in", connReactor, types.Input, sdecl.ElemType)
	if err != nil {
		return err
	}
	outPort, err := b.addPort("out", connReactor, types.Output, sdecl.ElemType)
	if err != nil {
		return err
	}
	actionKey, err := b.addAction("relay", connReactor, types.ActionStandard, sdecl.ElemType, !physical, delay, 0, 0)
	if err != nil {
		return err
	}

	if err := b.BindPort(src, inPort); err != nil {
		return err
	}
	if err := b.BindPort(outPort, sink); err != nil {
		return err
	}

	forwardBody := func(ctx *runtime.Context, _ any, usePorts []runtime.PortRef, _ []runtime.PortRef, actions []runtime.ActionRef) {
		in := runtime.Input[any](usePorts, 0)
		v, present := in.Get()
		if !present {
			return
		}
		runtime.Action[any](actions, 0).Schedule(v, nil)
	}
	forward, err := b.AddReaction(connName+".forward", connReactor, forwardBody)
	if err != nil {
		return err
	}
	if _, err := forward.WithTriggerAndUsePort(inPort).WithSchedulableAction(actionKey).Finish(); err != nil {
		return err
	}

	emitBody := func(ctx *runtime.Context, _ any, _ []runtime.PortRef, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		v, present := runtime.Action[any](actions, 0).Get()
		if !present {
			return
		}
		runtime.Output[any](ctx, effectPorts, 0).Set(v)
	}
	emit, err := b.AddReaction(connName+".emit", connReactor, emitBody)
	if err != nil {
		return err
	}
	if _, err := emit.WithTriggerAction(actionKey).WithEffectPort(outPort).Finish(); err != nil {
		return err
	}

	return nil
}
