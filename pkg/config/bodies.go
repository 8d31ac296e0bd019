package config

import (
	"fmt"

	"github.com/cuemby/reactix/pkg/log"
	"github.com/cuemby/reactix/pkg/runtime"
	"github.com/cuemby/reactix/pkg/types"
)

// counterState is the state backing the "counter" body. It must be installed
// as a reactor's State (via ReactorSpec.State: "counter") as a pointer, since
// RuntimeReaction.Body receives state by value on every invocation and only
// a pointer's mutations survive across tags.
type counterState struct {
	count int
}

var stateFactories = map[string]func() any{
	"counter": func() any { return &counterState{} },
}

// resolveState builds the initial State value for a ReactorSpec. An empty
// name yields nil, the default state for reactors that don't need one; an
// unknown name is an error.
func resolveState(name string) (any, error) {
	if name == "" {
		return nil, nil
	}
	factory, ok := stateFactories[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown state %q", name)
	}
	return factory(), nil
}

// bodyFactory builds a runtime.ReactionFunc from a reaction's free-form args.
type bodyFactory func(reactorName, reactionName string, args map[string]string) (runtime.ReactionFunc, error)

var bodyFactories = map[string]bodyFactory{
	"log":     logBody,
	"forward": forwardBody,
	"counter": counterBody,
}

// resolveBody looks up a registered body constructor by name.
func resolveBody(name, reactorName, reactionName string, args map[string]string) (runtime.ReactionFunc, error) {
	factory, ok := bodyFactories[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown reaction body %q (reaction %q)", name, reactionName)
	}
	return factory(reactorName, reactionName, args)
}

// logBody logs, at info level, how many of the reaction's use ports and
// actions carried a value this tag. It never touches effect ports: a
// manifest-declared "log" reaction is meant as a leaf observer.
func logBody(reactorName, reactionName string, _ map[string]string) (runtime.ReactionFunc, error) {
	logger := log.WithReactor(reactorName)
	return func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		present := 0
		for i := range usePorts {
			if _, ok := runtime.Input[any](usePorts, i).Get(); ok {
				present++
			}
		}
		actionsPresent := 0
		for i := range actions {
			if _, ok := runtime.Action[any](actions, i).Get(); ok {
				actionsPresent++
			}
		}
		logger.Info().
			Str("reaction", reactionName).
			Str("tag", ctx.GetTag().String()).
			Int("use_ports_present", present).
			Int("actions_present", actionsPresent).
			Msg("reaction fired")
	}, nil
}

// forwardBody copies the value of the reaction's first use port (or, absent
// that, its first declared action, whatever that action's relation) onto its
// first effect port. It is the
// manifest equivalent of Builder.ConnectPorts' synthesized relay reaction,
// usable as a reaction body directly rather than only inside ConnectPorts.
func forwardBody(_, reactionName string, _ map[string]string) (runtime.ReactionFunc, error) {
	return func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		if len(effectPorts) == 0 {
			return
		}
		if len(usePorts) > 0 {
			if v, ok := runtime.Input[any](usePorts, 0).Get(); ok {
				runtime.Output[any](ctx, effectPorts, 0).Set(v)
				return
			}
		}
		if len(actions) > 0 {
			if v, ok := runtime.Action[any](actions, 0).Get(); ok {
				runtime.Output[any](ctx, effectPorts, 0).Set(v)
			}
		}
	}, nil
}

// counterBody increments a *counterState (installed via ReactorSpec.State:
// "counter") and writes the new count to the reaction's first effect port.
func counterBody(_, reactionName string, _ map[string]string) (runtime.ReactionFunc, error) {
	return func(ctx *runtime.Context, state any, usePorts, effectPorts []runtime.PortRef, actions []runtime.ActionRef) {
		cs, ok := state.(*counterState)
		if !ok {
			panic(fmt.Sprintf("config: reaction %q needs reactor state \"counter\", got %T", reactionName, state))
		}
		cs.count++
		if len(effectPorts) > 0 {
			runtime.Output[int](ctx, effectPorts, 0).Set(cs.count)
		}
	}, nil
}

var deadlineHandlers = map[string]func(*runtime.Context) types.DeadlineResult{
	"stop": func(ctx *runtime.Context) types.DeadlineResult {
		log.Warn(fmt.Sprintf("deadline exceeded at tag %s, suppressing reaction body", ctx.GetTag()))
		return types.DeadlineStop
	},
	"continue": func(ctx *runtime.Context) types.DeadlineResult {
		log.Warn(fmt.Sprintf("deadline exceeded at tag %s, running reaction body anyway", ctx.GetTag()))
		return types.DeadlineContinue
	},
}

// resolveDeadlineHandler looks up a registered deadline handler by name.
func resolveDeadlineHandler(name string) (func(*runtime.Context) types.DeadlineResult, error) {
	h, ok := deadlineHandlers[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown deadline handler %q", name)
	}
	return h, nil
}

// direction parses a PortSpec.Direction string.
func direction(s string) (types.Direction, error) {
	switch s {
	case "input":
		return types.Input, nil
	case "output":
		return types.Output, nil
	default:
		return "", fmt.Errorf("config: invalid port direction %q", s)
	}
}
