package types

import (
	"reflect"
	"time"

	"github.com/cuemby/reactix/pkg/keys"
)

// Direction is the flow direction of a port.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// TriggerMode is how a reaction relates to one port or action it declares.
type TriggerMode string

const (
	TriggersOnly        TriggerMode = "triggers_only"
	TriggersAndUses      TriggerMode = "triggers_and_uses"
	UsesOnly            TriggerMode = "uses_only"
	EffectsOnly         TriggerMode = "effects_only"
	TriggersAndEffects   TriggerMode = "triggers_and_effects"
)

// IsTrigger reports whether mode makes the relation a trigger.
func (m TriggerMode) IsTrigger() bool {
	return m == TriggersOnly || m == TriggersAndUses || m == TriggersAndEffects
}

// IsUse reports whether mode makes the relation a use (read without trigger).
func (m TriggerMode) IsUse() bool {
	return m == TriggersAndUses || m == UsesOnly
}

// IsEffect reports whether mode makes the relation an effect (write).
func (m TriggerMode) IsEffect() bool {
	return m == EffectsOnly || m == TriggersAndEffects
}

// ActionKind distinguishes the four action kinds: timers, the implicit
// startup and shutdown actions, and standard (logical or physical) actions.
type ActionKind string

const (
	ActionTimer    ActionKind = "timer"
	ActionStartup  ActionKind = "startup"
	ActionShutdown ActionKind = "shutdown"
	ActionStandard ActionKind = "standard"
)

// ReactorDecl is a declared reactor instance.
type ReactorDecl struct {
	Name          string
	HasParent     bool
	Parent        keys.ReactorKey
	State         any
	Children      []keys.ReactorKey
	Ports         []keys.PortKey
	Actions       []keys.ActionKey
	Reactions     []keys.ReactionKey
	EnclaveRoot   bool
	StartupAction keys.ActionKey
	ShutdownAction keys.ActionKey
}

// PortDecl is a declared port on a reactor.
//
// HasDependency is set once some reaction declares this port as a trigger
// or use; HasAntidependency is set
// once some reaction declares it as an effect. Both gate BindPort/ConnectPorts
// per spec §3's binding invariants.
type PortDecl struct {
	Name             string
	Reactor          keys.ReactorKey
	Direction        Direction
	ElemType         reflect.Type
	BoundTo          *keys.PortKey // inward binding, i.e. this port's source
	HasDependency    bool
	HasAntidependency bool
}

// ActionDecl is a declared action on a reactor.
type ActionDecl struct {
	Name      string
	Reactor   keys.ReactorKey
	Kind      ActionKind
	Period    time.Duration // ActionTimer
	Offset    time.Duration // ActionTimer
	IsLogical bool          // ActionStandard: logical vs physical
	MinDelay  time.Duration // ActionStandard
	ElemType  reflect.Type  // ActionStandard payload type (nil for Timer/Startup/Shutdown)
}

// PortRelation records one (reaction, port, mode) declaration made through a
// ReactionBuilder.
type PortRelation struct {
	Port keys.PortKey
	Mode TriggerMode
}

// ActionRelation records one (reaction, action, mode) declaration. Actions
// support triggering, use and being scheduled (TriggersOnly, UsesOnly or
// EffectsOnly, the last meaning "schedulable" per spec §3's reaction fields).
type ActionRelation struct {
	Action keys.ActionKey
	Mode   TriggerMode
}

// DeadlineResult is returned by a deadline handler to say whether the
// reaction body should still run.
type DeadlineResult int

const (
	// DeadlineContinue lets the reaction body run after the handler.
	DeadlineContinue DeadlineResult = iota
	// DeadlineStop suppresses the reaction body for this invocation.
	DeadlineStop
)
