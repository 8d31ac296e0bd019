package runtime

import (
	"reflect"
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/tag"
	"github.com/cuemby/reactix/pkg/types"
)

// RuntimeReactor is one lowered reactor instance within an enclave's Env.
type RuntimeReactor struct {
	Name     string
	State    any
	Children []keys.RuntimeReactorKey
}

// RuntimePort is the canonical, materialized storage for one port group
// (a bind/connect chain collapses to a single RuntimePort). Present is reset
// by the scheduler at the end of every tag.
type RuntimePort struct {
	Name      string
	Reactor   keys.RuntimeReactorKey
	Direction types.Direction
	ElemType  reflect.Type
	Value     any
	Present   bool
}

// pendingPayload is one scheduled-but-not-yet-dispatched action value.
type pendingPayload struct {
	Tag   tag.Tag
	Value any
}

// RuntimeAction is a lowered action: a timer, the implicit shutdown action,
// or a logical/physical standard action. Pending holds payloads scheduled
// for a future tag, in schedule order; Take removes and returns the one
// payload (if any) matching the tag currently being processed.
type RuntimeAction struct {
	Name      string
	Reactor   keys.RuntimeReactorKey
	Kind      types.ActionKind
	Period    time.Duration
	Offset    time.Duration
	IsLogical bool
	MinDelay  time.Duration
	ElemType  reflect.Type

	Pending []pendingPayload
}

// Schedule enqueues a payload for delivery at t.
func (a *RuntimeAction) Schedule(t tag.Tag, value any) {
	a.Pending = append(a.Pending, pendingPayload{Tag: t, Value: value})
}

// Take removes and returns the payload scheduled for exactly t, if any.
func (a *RuntimeAction) Take(t tag.Tag) (any, bool) {
	for i, p := range a.Pending {
		if p.Tag.Equal(t) {
			a.Pending = append(a.Pending[:i], a.Pending[i+1:]...)
			return p.Value, true
		}
	}
	return nil, false
}

// Deadline is a reaction's optional lag-triggered escape hatch.
type Deadline struct {
	Lag     time.Duration
	Handler func(ctx *Context) types.DeadlineResult
}

// ReactionFunc is the user body invoked by the scheduler for one reaction at
// one tag. Arguments are type-erased; the body re-types them via the
// partitioning helpers in refs.go before touching them. usePorts and
// effectPorts only include ports declared with a use-like or effect-like
// mode (TriggersOnly ports are not readable — declare TriggersAndUses for
// that); actions holds every declared action relation — trigger, use, or
// schedulable — in declaration order.
type ReactionFunc func(ctx *Context, state any, usePorts []PortRef, effectPorts []PortRef, actions []ActionRef)

// RuntimeReaction is a lowered reaction: owning reactor, assigned level and
// intra-reactor priority, the trigger-table registration lists (TriggerPorts,
// TriggerActions), and the argument-vector lists passed to Body (UsePorts,
// EffectPorts, Actions), each in declaration order.
type RuntimeReaction struct {
	Name     string
	Reactor  keys.RuntimeReactorKey
	Priority int
	Level    int

	TriggerPorts   []keys.RuntimePortKey
	UsePorts       []keys.RuntimePortKey
	EffectPorts    []keys.RuntimePortKey
	TriggerActions []keys.RuntimeActionKey
	Actions        []keys.RuntimeActionKey

	Deadline *Deadline
	Body     ReactionFunc
}

// LeveledReaction pairs a reaction with the level it was assigned, so trigger
// tables can be iterated level-ascending without a second lookup.
type LeveledReaction struct {
	Level    int
	Reaction keys.RuntimeReactionKey
}

// ReactionGraph is the flat per-enclave trigger/argument tables §3 describes.
type ReactionGraph struct {
	ActionTriggers map[keys.RuntimeActionKey][]LeveledReaction
	PortTriggers   map[keys.RuntimePortKey][]LeveledReaction

	ReactionUsePorts    map[keys.RuntimeReactionKey][]keys.RuntimePortKey
	ReactionEffectPorts map[keys.RuntimeReactionKey][]keys.RuntimePortKey
	ReactionActions     map[keys.RuntimeReactionKey][]keys.RuntimeActionKey
	ReactionReactor     map[keys.RuntimeReactionKey]keys.RuntimeReactorKey

	// StartupReactions is keyed by the delay a startup-triggered reaction's
	// trigger action carries, so the scheduler can push one event per delay
	// group at Tag::ZERO.delay(delay) rather than one event per reaction.
	StartupReactions  map[time.Duration][]LeveledReaction
	ShutdownReactions []LeveledReaction
}

// NewReactionGraph returns an empty graph with all maps initialized.
func NewReactionGraph() *ReactionGraph {
	return &ReactionGraph{
		ActionTriggers:      make(map[keys.RuntimeActionKey][]LeveledReaction),
		PortTriggers:        make(map[keys.RuntimePortKey][]LeveledReaction),
		ReactionUsePorts:    make(map[keys.RuntimeReactionKey][]keys.RuntimePortKey),
		ReactionEffectPorts: make(map[keys.RuntimeReactionKey][]keys.RuntimePortKey),
		ReactionActions:     make(map[keys.RuntimeReactionKey][]keys.RuntimeActionKey),
		ReactionReactor:     make(map[keys.RuntimeReactionKey]keys.RuntimeReactorKey),
		StartupReactions:    make(map[time.Duration][]LeveledReaction),
	}
}

// Env is everything one enclave's scheduler needs to run: the flat tables of
// reactors, ports, actions, and reactions, plus the graph that relates them.
type Env struct {
	Reactors  keys.Arena[keys.RuntimeReactorKey, *RuntimeReactor]
	Ports     keys.Arena[keys.RuntimePortKey, *RuntimePort]
	Actions   keys.Arena[keys.RuntimeActionKey, *RuntimeAction]
	Reactions keys.Arena[keys.RuntimeReactionKey, *RuntimeReaction]
	Graph     *ReactionGraph
}

// NewEnv returns an empty Env with an initialized graph.
func NewEnv() *Env {
	return &Env{Graph: NewReactionGraph()}
}

// ResetPorts clears the present flag on every port. Called once per tag,
// after all of that tag's levels have been processed.
func (e *Env) ResetPorts() {
	for _, p := range e.Ports.Keys() {
		port := e.Ports.MustGet(p)
		port.Present = false
		port.Value = nil
	}
}
