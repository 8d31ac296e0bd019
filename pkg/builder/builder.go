package builder

import (
	"fmt"
	"reflect"
	"time"

	"github.com/cuemby/reactix/pkg/builderr"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/log"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/cuemby/reactix/pkg/types"
	"github.com/rs/zerolog"
)

// reactionDecl is the builder-space record for one declared reaction. It is
// promoted to a runtime.RuntimeReaction during lowering.
type reactionDecl struct {
	Name     string
	Reactor  keys.ReactorKey
	Priority int
	Body     runtime.ReactionFunc

	PortRelations   []types.PortRelation
	ActionRelations []types.ActionRelation
	Deadline        *deadlineDecl
	hasTrigger      bool
}

type deadlineDecl struct {
	Lag     time.Duration
	Handler func(*runtime.Context) types.DeadlineResult
}

// Builder accumulates a topology declaration. Use New, then AddReactor /
// Add*Port / Add*Action / AddReaction / BindPort / ConnectPorts, then Finish.
type Builder struct {
	reactors  keys.Arena[keys.ReactorKey, *types.ReactorDecl]
	ports     keys.Arena[keys.PortKey, *types.PortDecl]
	actions   keys.Arena[keys.ActionKey, *types.ActionDecl]
	reactions keys.Arena[keys.ReactionKey, *reactionDecl]

	reactorNames map[string]keys.ReactorKey
	portNames    map[string]keys.PortKey
	actionNames  map[string]keys.ActionKey

	synthCount int
	logger     zerolog.Logger
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{
		reactorNames: make(map[string]keys.ReactorKey),
		portNames:    make(map[string]keys.PortKey),
		actionNames:  make(map[string]keys.ActionKey),
		logger:       log.WithComponent("builder"),
	}
}

// FQN returns the dotted fully-qualified name of reactor, e.g. "main.child".
func (b *Builder) FQN(reactor keys.ReactorKey) (string, error) {
	decl, ok := b.reactors.Get(reactor)
	if !ok {
		return "", builderr.KeyNotFound("reactor", reactor)
	}
	return b.fqn(decl), nil
}

func (b *Builder) fqn(decl *types.ReactorDecl) string {
	if !decl.HasParent {
		return decl.Name
	}
	parent, ok := b.reactors.Get(decl.Parent)
	if !ok {
		return decl.Name
	}
	return b.fqn(parent) + "." + decl.Name
}

func (b *Builder) parentOf(r keys.ReactorKey) (keys.ReactorKey, bool) {
	decl, ok := b.reactors.Get(r)
	if !ok || !decl.HasParent {
		return 0, false
	}
	return decl.Parent, true
}

func (b *Builder) isChildOf(candidate, parent keys.ReactorKey) bool {
	pdecl, ok := b.reactors.Get(parent)
	if !ok {
		return false
	}
	for _, c := range pdecl.Children {
		if c == candidate {
			return true
		}
	}
	return false
}

// AddReactor declares a new reactor instance. parent is nil for a root
// reactor. Installs the implicit startup and shutdown actions.
func (b *Builder) AddReactor(name string, parent *keys.ReactorKey, state any) (keys.ReactorKey, error) {
	decl := &types.ReactorDecl{Name: name, State: state}
	if parent != nil {
		if _, ok := b.reactors.Get(*parent); !ok {
			return 0, builderr.KeyNotFound("reactor", *parent)
		}
		decl.HasParent = true
		decl.Parent = *parent
	}

	fqn := b.fqn(decl)
	if _, exists := b.reactorNames[fqn]; exists {
		parentName := ""
		if parent != nil {
			parentName = fqn[:len(fqn)-len(name)-1]
		}
		return 0, builderr.DuplicateReactor(parentName, name)
	}

	key := b.reactors.Add(decl)
	b.reactorNames[fqn] = key

	if parent != nil {
		pdecl := b.reactors.MustGet(*parent)
		pdecl.Children = append(pdecl.Children, key)
	}

	startup := b.actions.Add(&types.ActionDecl{Name: "startup", Reactor: key, Kind: types.ActionStartup})
	shutdown := b.actions.Add(&types.ActionDecl{Name: "shutdown", Reactor: key, Kind: types.ActionShutdown})
	decl.StartupAction = startup
	decl.ShutdownAction = shutdown
	b.actionNames[fqn+".startup"] = startup
	b.actionNames[fqn+".shutdown"] = shutdown

	return key, nil
}

func (b *Builder) addPort(name string, reactor keys.ReactorKey, dir types.Direction, elemType reflect.Type) (keys.PortKey, error) {
	rdecl, ok := b.reactors.Get(reactor)
	if !ok {
		return 0, builderr.KeyNotFound("reactor", reactor)
	}
	fqn := b.fqn(rdecl) + "." + name
	if _, exists := b.portNames[fqn]; exists {
		return 0, builderr.DuplicatePort(rdecl.Name, name)
	}
	key := b.ports.Add(&types.PortDecl{Name: name, Reactor: reactor, Direction: dir, ElemType: elemType})
	rdecl.Ports = append(rdecl.Ports, key)
	b.portNames[fqn] = key
	return key, nil
}

// AddInputPort declares an input port of element type T on reactor.
func AddInputPort[T any](b *Builder, name string, reactor keys.ReactorKey) (keys.PortKey, error) {
	return b.addPort(name, reactor, types.Input, elemTypeOf[T]())
}

// AddOutputPort declares an output port of element type T on reactor.
func AddOutputPort[T any](b *Builder, name string, reactor keys.ReactorKey) (keys.PortKey, error) {
	return b.addPort(name, reactor, types.Output, elemTypeOf[T]())
}

func elemTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (b *Builder) addAction(name string, reactor keys.ReactorKey, kind types.ActionKind, elemType reflect.Type, isLogical bool, minDelay, period, offset time.Duration) (keys.ActionKey, error) {
	rdecl, ok := b.reactors.Get(reactor)
	if !ok {
		return 0, builderr.KeyNotFound("reactor", reactor)
	}
	fqn := b.fqn(rdecl) + "." + name
	if _, exists := b.actionNames[fqn]; exists {
		return 0, builderr.DuplicateAction(rdecl.Name, name)
	}
	key := b.actions.Add(&types.ActionDecl{
		Name: name, Reactor: reactor, Kind: kind,
		Period: period, Offset: offset,
		IsLogical: isLogical, MinDelay: minDelay, ElemType: elemType,
	})
	rdecl.Actions = append(rdecl.Actions, key)
	b.actionNames[fqn] = key
	return key, nil
}

// AddTimer declares a periodic timer action. A zero period fires once, at offset.
func (b *Builder) AddTimer(name string, period, offset time.Duration, reactor keys.ReactorKey) (keys.ActionKey, error) {
	return b.addAction(name, reactor, types.ActionTimer, nil, true, 0, period, offset)
}

// AddLogicalAction declares a logical action of payload type T: scheduled
// events are delivered on the logical timeline, min_delay applied.
func AddLogicalAction[T any](b *Builder, name string, minDelay time.Duration, reactor keys.ReactorKey) (keys.ActionKey, error) {
	return b.addAction(name, reactor, types.ActionStandard, elemTypeOf[T](), true, minDelay, 0, 0)
}

// AddPhysicalAction declares a physical action of payload type T: scheduled
// events are tagged from wall-clock time observed at the moment of scheduling.
func AddPhysicalAction[T any](b *Builder, name string, minDelay time.Duration, reactor keys.ReactorKey) (keys.ActionKey, error) {
	return b.addAction(name, reactor, types.ActionStandard, elemTypeOf[T](), false, minDelay, 0, 0)
}

// ResolvePort looks up a port by its fully-qualified name.
func (b *Builder) ResolvePort(fqn string) (keys.PortKey, error) {
	k, ok := b.portNames[fqn]
	if !ok {
		return 0, builderr.NamedElementNotFound("port", fqn)
	}
	return k, nil
}

// ResolveAction looks up an action by its fully-qualified name.
func (b *Builder) ResolveAction(fqn string) (keys.ActionKey, error) {
	k, ok := b.actionNames[fqn]
	if !ok {
		return 0, builderr.NamedElementNotFound("action", fqn)
	}
	return k, nil
}

// ResolveReactor looks up a reactor by its fully-qualified name.
func (b *Builder) ResolveReactor(fqn string) (keys.ReactorKey, error) {
	k, ok := b.reactorNames[fqn]
	if !ok {
		return 0, builderr.NamedElementNotFound("reactor", fqn)
	}
	return k, nil
}

// MarkEnclaveRoot marks reactor (and, once lowered, all its descendants) as
// the root of its own enclave partition.
func (b *Builder) MarkEnclaveRoot(reactor keys.ReactorKey) error {
	decl, ok := b.reactors.Get(reactor)
	if !ok {
		return builderr.KeyNotFound("reactor", reactor)
	}
	decl.EnclaveRoot = true
	return nil
}

// canonicalSource follows a port's BoundTo chain inward to the port that
// actually materializes storage.
func (b *Builder) canonicalSource(port keys.PortKey) keys.PortKey {
	seen := map[keys.PortKey]bool{}
	cur := port
	for {
		decl := b.ports.MustGet(cur)
		if decl.BoundTo == nil {
			return cur
		}
		if seen[cur] {
			return cur // defensive: a cycle here is a builder bug, not reachable via public API
		}
		seen[cur] = true
		cur = *decl.BoundTo
	}
}

// BindPort enforces the six binding rules of §3 and, if they hold, records
// sink's inward binding to src.
func (b *Builder) BindPort(src, sink keys.PortKey) error {
	sdecl, ok := b.ports.Get(src)
	if !ok {
		return builderr.KeyNotFound("port", src)
	}
	kdecl, ok := b.ports.Get(sink)
	if !ok {
		return builderr.KeyNotFound("port", sink)
	}
	if kdecl.BoundTo != nil {
		return builderr.PortBindInvalid(fmt.Sprintf("port %q already has an inward binding", kdecl.Name))
	}
	if sdecl.HasDependency {
		return builderr.PortBindInvalid(fmt.Sprintf("port %q has a declared dependency and cannot be a connection source", sdecl.Name))
	}
	if kdecl.HasAntidependency {
		return builderr.PortBindInvalid(fmt.Sprintf("port %q has a declared antidependency and cannot be a connection sink", kdecl.Name))
	}

	switch {
	case sdecl.Direction == types.Input && kdecl.Direction == types.Output:
		return builderr.PortBindInvalid("input-to-output bindings are never allowed")

	case sdecl.Direction == types.Input && kdecl.Direction == types.Input:
		if !b.isChildOf(kdecl.Reactor, sdecl.Reactor) {
			return builderr.PortBindInvalid("input-to-input binding requires sink to be an input of a direct child of the source's owner")
		}

	case sdecl.Direction == types.Output && kdecl.Direction == types.Input:
		sp, sok := b.parentOf(sdecl.Reactor)
		kp, kok := b.parentOf(kdecl.Reactor)
		sameParent := sok == kok && (!sok || sp == kp)
		if !sameParent || sdecl.Reactor == kdecl.Reactor {
			return builderr.PortBindInvalid("output-to-input binding requires distinct owners sharing the same parent")
		}

	case sdecl.Direction == types.Output && kdecl.Direction == types.Output:
		sp, sok := b.parentOf(sdecl.Reactor)
		if !sok || sp != kdecl.Reactor {
			return builderr.PortBindInvalid("output-to-output binding requires the source owner's parent to equal the sink's owner")
		}
	}

	src2 := src
	kdecl.BoundTo = &src2
	return nil
}
