package builder

import (
	"fmt"
	"time"

	"github.com/cuemby/reactix/pkg/builderr"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/cuemby/reactix/pkg/types"
)

// AddReaction declares a reaction owned by reactor, running body when
// triggered. Priority is the insertion ordinal among the reactor's reactions.
// Returns a ReactionBuilder for declaring the reaction's port and action
// relations; call Finish to commit it.
func (b *Builder) AddReaction(name string, reactor keys.ReactorKey, body runtime.ReactionFunc) (*ReactionBuilder, error) {
	rdecl, ok := b.reactors.Get(reactor)
	if !ok {
		return nil, builderr.KeyNotFound("reactor", reactor)
	}
	decl := &reactionDecl{Name: name, Reactor: reactor, Priority: len(rdecl.Reactions), Body: body}
	key := b.reactions.Add(decl)
	rdecl.Reactions = append(rdecl.Reactions, key)
	return &ReactionBuilder{b: b, key: key}, nil
}

// ReactionBuilder accumulates trigger/use/effect relations for one reaction.
// Each With* call is a no-op once an earlier call has failed; the error
// surfaces from Finish.
type ReactionBuilder struct {
	b   *Builder
	key keys.ReactionKey
	err error
}

func (rb *ReactionBuilder) validatePort(pdecl *types.PortDecl, reactorKey keys.ReactorKey, mode types.TriggerMode) error {
	isChild := rb.b.isChildOf(pdecl.Reactor, reactorKey)
	switch pdecl.Direction {
	case types.Input:
		if (mode.IsTrigger() || mode.IsUse()) && pdecl.Reactor != reactorKey {
			return builderr.ReactionBuilderInvalid(fmt.Sprintf("trigger/use on input port %q must be declared on the reaction's own reactor", pdecl.Name))
		}
		if mode.IsEffect() && !isChild {
			return builderr.ReactionBuilderInvalid(fmt.Sprintf("effect on input port %q must target a child reactor's port", pdecl.Name))
		}
	case types.Output:
		if (mode.IsTrigger() || mode.IsUse()) && !isChild {
			return builderr.ReactionBuilderInvalid(fmt.Sprintf("trigger/use on output port %q must target a child reactor's port", pdecl.Name))
		}
		if mode.IsEffect() && pdecl.Reactor != reactorKey {
			return builderr.ReactionBuilderInvalid(fmt.Sprintf("effect on output port %q must be declared on the reaction's own reactor", pdecl.Name))
		}
	}
	return nil
}

func (rb *ReactionBuilder) withPort(port keys.PortKey, mode types.TriggerMode) *ReactionBuilder {
	if rb.err != nil {
		return rb
	}
	pdecl, ok := rb.b.ports.Get(port)
	if !ok {
		rb.err = builderr.KeyNotFound("port", port)
		return rb
	}
	rdecl := rb.b.reactions.MustGet(rb.key)
	if err := rb.validatePort(pdecl, rdecl.Reactor, mode); err != nil {
		rb.err = err
		return rb
	}
	rdecl.PortRelations = append(rdecl.PortRelations, types.PortRelation{Port: port, Mode: mode})
	if mode.IsTrigger() {
		rdecl.hasTrigger = true
		pdecl.HasDependency = true
	}
	if mode.IsUse() {
		pdecl.HasDependency = true
	}
	if mode.IsEffect() {
		pdecl.HasAntidependency = true
	}
	return rb
}

// WithTriggerPort declares port as a trigger: the reaction runs whenever it
// is written. The value is not readable unless also declared with
// WithTriggerAndUsePort.
func (rb *ReactionBuilder) WithTriggerPort(port keys.PortKey) *ReactionBuilder {
	return rb.withPort(port, types.TriggersOnly)
}

// WithTriggerAndUsePort declares port as both a trigger and a readable
// argument.
func (rb *ReactionBuilder) WithTriggerAndUsePort(port keys.PortKey) *ReactionBuilder {
	return rb.withPort(port, types.TriggersAndUses)
}

// WithUsePort declares port as a readable, non-triggering argument.
func (rb *ReactionBuilder) WithUsePort(port keys.PortKey) *ReactionBuilder {
	return rb.withPort(port, types.UsesOnly)
}

// WithEffectPort declares port as writable by this reaction.
func (rb *ReactionBuilder) WithEffectPort(port keys.PortKey) *ReactionBuilder {
	return rb.withPort(port, types.EffectsOnly)
}

// WithTriggerAndEffectPort declares port as both a trigger and writable —
// rare, but valid for a reaction that re-derives its own trigger's value.
func (rb *ReactionBuilder) WithTriggerAndEffectPort(port keys.PortKey) *ReactionBuilder {
	return rb.withPort(port, types.TriggersAndEffects)
}

func (rb *ReactionBuilder) withAction(action keys.ActionKey, mode types.TriggerMode) *ReactionBuilder {
	if rb.err != nil {
		return rb
	}
	adecl, ok := rb.b.actions.Get(action)
	if !ok {
		rb.err = builderr.KeyNotFound("action", action)
		return rb
	}
	rdecl := rb.b.reactions.MustGet(rb.key)
	if adecl.Reactor != rdecl.Reactor {
		rb.err = builderr.ReactionBuilderInvalid(fmt.Sprintf("action %q does not belong to this reaction's reactor", adecl.Name))
		return rb
	}
	rdecl.ActionRelations = append(rdecl.ActionRelations, types.ActionRelation{Action: action, Mode: mode})
	if mode.IsTrigger() {
		rdecl.hasTrigger = true
	}
	return rb
}

// WithTriggerAction declares action as a trigger for this reaction.
func (rb *ReactionBuilder) WithTriggerAction(action keys.ActionKey) *ReactionBuilder {
	return rb.withAction(action, types.TriggersOnly)
}

// WithSchedulableAction declares action as schedulable (writable) by this
// reaction, without triggering it.
func (rb *ReactionBuilder) WithSchedulableAction(action keys.ActionKey) *ReactionBuilder {
	return rb.withAction(action, types.EffectsOnly)
}

// WithUseAction declares action as readable by this reaction for whatever
// value was delivered to it this tag, without this reaction triggering on it.
func (rb *ReactionBuilder) WithUseAction(action keys.ActionKey) *ReactionBuilder {
	return rb.withAction(action, types.UsesOnly)
}

// WithDeadline attaches a deadline: if physical time exceeds tag time by more
// than lag when the reaction becomes eligible, handler runs before (and may
// suppress) the body.
func (rb *ReactionBuilder) WithDeadline(lag time.Duration, handler func(*runtime.Context) types.DeadlineResult) *ReactionBuilder {
	if rb.err != nil {
		return rb
	}
	rdecl := rb.b.reactions.MustGet(rb.key)
	rdecl.Deadline = &deadlineDecl{Lag: lag, Handler: handler}
	return rb
}

// Finish commits the reaction, rejecting it if no trigger was declared.
func (rb *ReactionBuilder) Finish() (keys.ReactionKey, error) {
	if rb.err != nil {
		return 0, rb.err
	}
	rdecl := rb.b.reactions.MustGet(rb.key)
	if !rdecl.hasTrigger {
		return 0, builderr.ReactionBuilderInvalid(fmt.Sprintf("reaction %q declares no trigger", rdecl.Name))
	}
	return rb.key, nil
}
