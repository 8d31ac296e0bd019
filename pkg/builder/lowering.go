package builder

import (
	"fmt"
	"time"

	"github.com/cuemby/reactix/pkg/builderr"
	"github.com/cuemby/reactix/pkg/graph"
	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/runtime"
)

// PortAlias records where a builder-space port ended up after lowering.
type PortAlias struct {
	Enclave keys.EnclaveKey
	Port    keys.RuntimePortKey
}

// ActionAlias records where a builder-space action ended up after lowering.
type ActionAlias struct {
	Enclave keys.EnclaveKey
	Action  keys.RuntimeActionKey
}

// CrossEnclaveLink tells a home enclave to mirror a port write into a
// downstream enclave's Env, after Delay, the next time that port is set.
// It is how a plain same-parent BindPort that happens to cross an enclave
// boundary (one sibling marked as an enclave root) is actually propagated,
// since the two enclaves never share memory.
type CrossEnclaveLink struct {
	HomeEnclave keys.EnclaveKey
	HomePort    keys.RuntimePortKey
	DownEnclave keys.EnclaveKey
	DownPort    keys.RuntimePortKey
	Delay       time.Duration
}

// Aliases is the builder-to-runtime lookup table produced by Finish.
type Aliases struct {
	Ports     map[keys.PortKey]PortAlias
	Actions   map[keys.ActionKey]ActionAlias
	Reactors  map[keys.ReactorKey]keys.RuntimeReactorKey
	Reactions map[keys.ReactionKey]keys.RuntimeReactionKey
	Enclaves  map[keys.ReactorKey]keys.EnclaveKey
}

// BuiltTopology is the result of Finish: one Env per enclave, cross-enclave
// link metadata, and the alias tables.
type BuiltTopology struct {
	Envs    map[keys.EnclaveKey]*runtime.Env
	Links   []CrossEnclaveLink
	Aliases Aliases
}

func (b *Builder) buildReactionGraph() (*graph.Graph, error) {
	g := graph.New()
	for _, rk := range b.reactions.Keys() {
		g.AddNode(rk)
	}

	for _, rk := range b.reactions.Keys() {
		rdecl := b.reactions.MustGet(rk)
		for _, rel := range rdecl.PortRelations {
			if !rel.Mode.IsTrigger() {
				continue
			}
			canonical := b.canonicalSource(rel.Port)
			for _, rk2 := range b.reactions.Keys() {
				if rk2 == rk {
					continue
				}
				other := b.reactions.MustGet(rk2)
				for _, rel2 := range other.PortRelations {
					if rel2.Mode.IsEffect() && b.canonicalSource(rel2.Port) == canonical {
						// rk2 writes the port rk triggers on: rk2 must run first.
						g.AddEdge(rk2, rk)
					}
				}
			}
		}
	}

	for _, rek := range b.reactors.Keys() {
		rdecl := b.reactors.MustGet(rek)
		for i := 0; i+1 < len(rdecl.Reactions); i++ {
			g.AddEdge(rdecl.Reactions[i], rdecl.Reactions[i+1])
		}
	}

	return g, nil
}

func (b *Builder) witnessNames(witness []keys.ReactionKey) []string {
	out := make([]string, len(witness))
	for i, rk := range witness {
		rdecl := b.reactions.MustGet(rk)
		out[i] = rdecl.Name
	}
	return out
}

func (b *Builder) assignEnclaves() map[keys.ReactorKey]keys.EnclaveKey {
	result := make(map[keys.ReactorKey]keys.EnclaveKey)
	nextID := keys.EnclaveKey(1)

	var visit func(r keys.ReactorKey, current keys.EnclaveKey)
	visit = func(r keys.ReactorKey, current keys.EnclaveKey) {
		decl := b.reactors.MustGet(r)
		enc := current
		if decl.EnclaveRoot {
			enc = nextID
			nextID++
		}
		result[r] = enc
		for _, c := range decl.Children {
			visit(c, enc)
		}
	}

	for _, r := range b.reactors.Keys() {
		decl := b.reactors.MustGet(r)
		if !decl.HasParent {
			visit(r, keys.EnclaveKey(0))
		}
	}
	return result
}

// Finish validates the accumulated topology, computes the reaction graph and
// level assignment, and lowers everything into per-enclave runtime parts.
func (b *Builder) Finish() (*BuiltTopology, error) {
	g, err := b.buildReactionGraph()
	if err != nil {
		return nil, err
	}
	levels, err := g.AssignLevels()
	if err != nil {
		cycleErr, ok := err.(*graph.CycleError)
		if !ok {
			return nil, builderr.Internal(err.Error())
		}
		return nil, builderr.ReactionGraphCycle(b.witnessNames(cycleErr.Witness))
	}

	reactorEnclave := b.assignEnclaves()

	envs := make(map[keys.EnclaveKey]*runtime.Env)
	envFor := func(enc keys.EnclaveKey) *runtime.Env {
		e, ok := envs[enc]
		if !ok {
			e = runtime.NewEnv()
			envs[enc] = e
		}
		return e
	}

	aliases := Aliases{
		Ports:     make(map[keys.PortKey]PortAlias),
		Actions:   make(map[keys.ActionKey]ActionAlias),
		Reactors:  make(map[keys.ReactorKey]keys.RuntimeReactorKey),
		Reactions: make(map[keys.ReactionKey]keys.RuntimeReactionKey),
		Enclaves:  reactorEnclave,
	}

	// Reactors.
	for _, rk := range b.reactors.Keys() {
		decl := b.reactors.MustGet(rk)
		enc := reactorEnclave[rk]
		env := envFor(enc)
		rrKey := env.Reactors.Add(&runtime.RuntimeReactor{Name: decl.Name, State: decl.State})
		aliases.Reactors[rk] = rrKey
	}
	for _, rk := range b.reactors.Keys() {
		decl := b.reactors.MustGet(rk)
		env := envFor(reactorEnclave[rk])
		rr := env.Reactors.MustGet(aliases.Reactors[rk])
		for _, c := range decl.Children {
			if reactorEnclave[c] == reactorEnclave[rk] {
				rr.Children = append(rr.Children, aliases.Reactors[c])
			}
		}
	}

	// Canonical port groups: group every port by its canonical source.
	groups := make(map[keys.PortKey][]keys.PortKey)
	for _, pk := range b.ports.Keys() {
		canonical := b.canonicalSource(pk)
		groups[canonical] = append(groups[canonical], pk)
	}

	var links []CrossEnclaveLink
	for canonical, members := range groups {
		cdecl := b.ports.MustGet(canonical)
		homeEnc := reactorEnclave[cdecl.Reactor]
		homeEnv := envFor(homeEnc)
		homeKey := homeEnv.Ports.Add(&runtime.RuntimePort{
			Name: cdecl.Name, Reactor: aliases.Reactors[cdecl.Reactor],
			Direction: cdecl.Direction, ElemType: cdecl.ElemType,
		})
		aliases.Ports[canonical] = PortAlias{Enclave: homeEnc, Port: homeKey}

		for _, m := range members {
			if m == canonical {
				continue
			}
			mdecl := b.ports.MustGet(m)
			mEnc := reactorEnclave[mdecl.Reactor]
			if mEnc == homeEnc {
				aliases.Ports[m] = PortAlias{Enclave: homeEnc, Port: homeKey}
				continue
			}
			mEnv := envFor(mEnc)
			mirrorKey := mEnv.Ports.Add(&runtime.RuntimePort{
				Name: mdecl.Name, Reactor: aliases.Reactors[mdecl.Reactor],
				Direction: mdecl.Direction, ElemType: mdecl.ElemType,
			})
			aliases.Ports[m] = PortAlias{Enclave: mEnc, Port: mirrorKey}
			links = append(links, CrossEnclaveLink{HomeEnclave: homeEnc, HomePort: homeKey, DownEnclave: mEnc, DownPort: mirrorKey, Delay: 0})
		}
	}

	// Actions: culled if referenced by no reaction. This applies to every
	// kind, timers and the implicit startup/shutdown actions included.
	referenced := make(map[keys.ActionKey]bool)
	for _, rk := range b.reactions.Keys() {
		rdecl := b.reactions.MustGet(rk)
		for _, rel := range rdecl.ActionRelations {
			referenced[rel.Action] = true
		}
	}
	for _, ak := range b.actions.Keys() {
		adecl := b.actions.MustGet(ak)
		if !referenced[ak] {
			continue // unused timer/startup/shutdown actions are culled
		}
		env := envFor(reactorEnclave[adecl.Reactor])
		rk := env.Actions.Add(&runtime.RuntimeAction{
			Name: adecl.Name, Reactor: aliases.Reactors[adecl.Reactor], Kind: adecl.Kind,
			Period: adecl.Period, Offset: adecl.Offset, IsLogical: adecl.IsLogical,
			MinDelay: adecl.MinDelay, ElemType: adecl.ElemType,
		})
		aliases.Actions[ak] = ActionAlias{Enclave: reactorEnclave[adecl.Reactor], Action: rk}
	}

	// Reactions.
	for _, rk := range b.reactions.Keys() {
		rdecl := b.reactions.MustGet(rk)
		enc := reactorEnclave[rdecl.Reactor]
		env := envFor(enc)

		rr := &runtime.RuntimeReaction{
			Name: rdecl.Name, Reactor: aliases.Reactors[rdecl.Reactor],
			Priority: rdecl.Priority, Level: levels[rk], Body: rdecl.Body,
		}
		for _, rel := range rdecl.PortRelations {
			pa, ok := aliases.Ports[rel.Port]
			if !ok {
				return nil, builderr.Internal(fmt.Sprintf("port %v missing alias after lowering", rel.Port))
			}
			if pa.Enclave != enc {
				return nil, builderr.PortConnectionInvalid(fmt.Sprintf("reaction %q references port %q in a different enclave without going through connect_ports", rdecl.Name, b.ports.MustGet(rel.Port).Name))
			}
			if rel.Mode.IsTrigger() {
				rr.TriggerPorts = append(rr.TriggerPorts, pa.Port)
			}
			if rel.Mode.IsUse() {
				rr.UsePorts = append(rr.UsePorts, pa.Port)
			}
			if rel.Mode.IsEffect() {
				rr.EffectPorts = append(rr.EffectPorts, pa.Port)
			}
		}
		for _, rel := range rdecl.ActionRelations {
			aa, ok := aliases.Actions[rel.Action]
			if !ok {
				continue // culled action with no remaining relation target
			}
			rr.Actions = append(rr.Actions, aa.Action)
			if rel.Mode.IsTrigger() {
				rr.TriggerActions = append(rr.TriggerActions, aa.Action)
			}
		}
		if rdecl.Deadline != nil {
			handler := rdecl.Deadline.Handler
			rr.Deadline = &runtime.Deadline{Lag: rdecl.Deadline.Lag, Handler: handler}
		}

		rrKey := env.Reactions.Add(rr)
		aliases.Reactions[rk] = rrKey

		leveled := runtime.LeveledReaction{Level: rr.Level, Reaction: rrKey}
		for _, p := range rr.TriggerPorts {
			env.Graph.PortTriggers[p] = append(env.Graph.PortTriggers[p], leveled)
		}
		for _, a := range rr.TriggerActions {
			env.Graph.ActionTriggers[a] = append(env.Graph.ActionTriggers[a], leveled)
		}
		env.Graph.ReactionUsePorts[rrKey] = rr.UsePorts
		env.Graph.ReactionEffectPorts[rrKey] = rr.EffectPorts
		env.Graph.ReactionActions[rrKey] = rr.Actions
		env.Graph.ReactionReactor[rrKey] = rr.Reactor

		ownerDecl := b.reactors.MustGet(rdecl.Reactor)
		for _, rel := range rdecl.ActionRelations {
			if !rel.Mode.IsTrigger() {
				continue
			}
			switch rel.Action {
			case ownerDecl.StartupAction:
				env.Graph.StartupReactions[0] = append(env.Graph.StartupReactions[0], leveled)
			case ownerDecl.ShutdownAction:
				env.Graph.ShutdownReactions = append(env.Graph.ShutdownReactions, leveled)
			}
		}
	}

	return &BuiltTopology{Envs: envs, Links: links, Aliases: aliases}, nil
}
