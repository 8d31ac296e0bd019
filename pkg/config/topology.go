package config

import (
	"fmt"
	"time"

	"github.com/cuemby/reactix/pkg/builder"
	"github.com/cuemby/reactix/pkg/keys"
)

// Build walks a Manifest and drives Builder calls to construct the
// equivalent topology, returning a *builder.Builder ready for Finish.
//
// Reactors must appear before their children (Parent references an
// already-declared reactor's FQN); every port/action reference inside a
// ReactionSpec or ConnectionSpec is the target's full dotted name, resolved
// through Builder.ResolvePort/ResolveAction/ResolveReactor rather than a
// second name table kept here.
func Build(m *Manifest) (*builder.Builder, error) {
	b := builder.New()

	for _, rs := range m.Reactors {
		if err := declareReactor(b, rs); err != nil {
			return nil, fmt.Errorf("reactor %q: %w", rs.Name, err)
		}
	}
	for _, rs := range m.Reactors {
		reactorFqn := fqnOf(rs)
		for _, rxs := range rs.Reactions {
			if err := declareReaction(b, reactorFqn, rxs); err != nil {
				return nil, fmt.Errorf("reaction %q: %w", rxs.Name, err)
			}
		}
	}
	for _, cs := range m.Connections {
		if err := declareConnection(b, cs); err != nil {
			return nil, fmt.Errorf("connection %s->%s: %w", cs.From, cs.To, err)
		}
	}
	return b, nil
}

func fqnOf(rs ReactorSpec) string {
	if rs.Parent == "" {
		return rs.Name
	}
	return rs.Parent + "." + rs.Name
}

func declareReactor(b *builder.Builder, rs ReactorSpec) error {
	var parentKey *keys.ReactorKey
	if rs.Parent != "" {
		pk, err := b.ResolveReactor(rs.Parent)
		if err != nil {
			return err
		}
		parentKey = &pk
	}

	state, err := resolveState(rs.State)
	if err != nil {
		return err
	}

	rk, err := b.AddReactor(rs.Name, parentKey, state)
	if err != nil {
		return err
	}
	if rs.EnclaveRoot {
		if err := b.MarkEnclaveRoot(rk); err != nil {
			return err
		}
	}

	for _, ps := range rs.Ports {
		dir, err := direction(ps.Direction)
		if err != nil {
			return fmt.Errorf("port %q: %w", ps.Name, err)
		}
		if dir == "input" {
			if _, err := builder.AddInputPort[any](b, ps.Name, rk); err != nil {
				return err
			}
		} else {
			if _, err := builder.AddOutputPort[any](b, ps.Name, rk); err != nil {
				return err
			}
		}
	}

	for _, as := range rs.Actions {
		if err := declareAction(b, rk, as); err != nil {
			return fmt.Errorf("action %q: %w", as.Name, err)
		}
	}
	return nil
}

func declareAction(b *builder.Builder, rk keys.ReactorKey, as ActionSpec) error {
	var err error
	switch as.Kind {
	case "timer":
		var period, offset Duration
		if as.Period != nil {
			period = *as.Period
		}
		if as.Offset != nil {
			offset = *as.Offset
		}
		_, err = b.AddTimer(as.Name, period.Dur(), offset.Dur(), rk)
	case "logical":
		var minDelay Duration
		if as.MinDelay != nil {
			minDelay = *as.MinDelay
		}
		_, err = builder.AddLogicalAction[any](b, as.Name, minDelay.Dur(), rk)
	case "physical":
		var minDelay Duration
		if as.MinDelay != nil {
			minDelay = *as.MinDelay
		}
		_, err = builder.AddPhysicalAction[any](b, as.Name, minDelay.Dur(), rk)
	default:
		return fmt.Errorf("invalid action kind %q", as.Kind)
	}
	return err
}

func declareReaction(b *builder.Builder, reactorFqn string, rxs ReactionSpec) error {
	rk, err := b.ResolveReactor(reactorFqn)
	if err != nil {
		return err
	}
	body, err := resolveBody(rxs.Body, reactorFqn, rxs.Name, rxs.Args)
	if err != nil {
		return err
	}

	rb, err := b.AddReaction(rxs.Name, rk, body)
	if err != nil {
		return err
	}

	for _, name := range rxs.Trigger.Ports {
		pk, err := b.ResolvePort(name)
		if err != nil {
			return err
		}
		rb = rb.WithTriggerPort(pk)
	}
	for _, name := range rxs.TriggerAndUse.Ports {
		pk, err := b.ResolvePort(name)
		if err != nil {
			return err
		}
		rb = rb.WithTriggerAndUsePort(pk)
	}
	for _, name := range rxs.Use.Ports {
		pk, err := b.ResolvePort(name)
		if err != nil {
			return err
		}
		rb = rb.WithUsePort(pk)
	}
	for _, name := range rxs.Effect.Ports {
		pk, err := b.ResolvePort(name)
		if err != nil {
			return err
		}
		rb = rb.WithEffectPort(pk)
	}
	for _, name := range rxs.TriggerAndEffect.Ports {
		pk, err := b.ResolvePort(name)
		if err != nil {
			return err
		}
		rb = rb.WithTriggerAndEffectPort(pk)
	}

	for _, name := range rxs.Trigger.Actions {
		ak, err := b.ResolveAction(name)
		if err != nil {
			return err
		}
		rb = rb.WithTriggerAction(ak)
	}
	for _, name := range rxs.Use.Actions {
		ak, err := b.ResolveAction(name)
		if err != nil {
			return err
		}
		rb = rb.WithUseAction(ak)
	}
	for _, name := range rxs.Effect.Actions {
		ak, err := b.ResolveAction(name)
		if err != nil {
			return err
		}
		rb = rb.WithSchedulableAction(ak)
	}
	for _, name := range rxs.Schedulable {
		ak, err := b.ResolveAction(name)
		if err != nil {
			return err
		}
		rb = rb.WithSchedulableAction(ak)
	}

	if rxs.Deadline != nil {
		handler, err := resolveDeadlineHandler(rxs.Deadline.Handler)
		if err != nil {
			return err
		}
		rb = rb.WithDeadline(rxs.Deadline.Lag.Dur(), handler)
	}

	_, err = rb.Finish()
	return err
}

func declareConnection(b *builder.Builder, cs ConnectionSpec) error {
	src, err := b.ResolvePort(cs.From)
	if err != nil {
		return err
	}
	sink, err := b.ResolvePort(cs.To)
	if err != nil {
		return err
	}
	var after *time.Duration
	if cs.After != nil {
		d := cs.After.Dur()
		after = &d
	}
	return b.ConnectPorts(src, sink, after, cs.Physical)
}
