package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a declarative topology description consumed by
// cmd/reactixctl. Every port and action reference inside a ReactionSpec is a
// fully-qualified dotted name ("reactorFqn.portOrActionName"), including
// references to the reaction's own reactor's ports/actions — this keeps the
// manifest walker a single uniform lookup (Builder.ResolvePort/ResolveAction)
// instead of reimplementing the builder's own FQN rules. Reactors must be
// listed with each parent before its children.
type Manifest struct {
	Scheduler  SchedulerConfig    `yaml:"scheduler"`
	Reactors   []ReactorSpec      `yaml:"reactors"`
	Connections []ConnectionSpec  `yaml:"connections"`
}

// ReactorSpec declares one reactor instance.
type ReactorSpec struct {
	Name        string         `yaml:"name"`
	Parent      string         `yaml:"parent,omitempty"` // FQN of parent reactor, empty for root
	EnclaveRoot bool           `yaml:"enclaveRoot,omitempty"`
	State       string         `yaml:"state,omitempty"` // name of a built-in state initializer, see pkg/config/bodies.go
	Ports       []PortSpec     `yaml:"ports,omitempty"`
	Actions     []ActionSpec   `yaml:"actions,omitempty"`
	Reactions   []ReactionSpec `yaml:"reactions,omitempty"`
}

// PortSpec declares one port. Manifest-declared ports always carry element
// type any — full static typing is the Go builder API's job, not the demo
// CLI's.
type PortSpec struct {
	Name      string `yaml:"name"`
	Direction string `yaml:"direction"` // "input" | "output"
}

// ActionSpec declares one action.
type ActionSpec struct {
	Name     string    `yaml:"name"`
	Kind     string    `yaml:"kind"` // "timer" | "logical" | "physical"
	Period   *Duration `yaml:"period,omitempty"`
	Offset   *Duration `yaml:"offset,omitempty"`
	MinDelay *Duration `yaml:"minDelay,omitempty"`
}

// RelationSpec lists the ports and actions a reaction relates to under one
// trigger mode.
type RelationSpec struct {
	Ports   []string `yaml:"ports,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
}

// DeadlineSpec attaches a named deadline handler (resolved via the body
// registry) to a reaction.
type DeadlineSpec struct {
	Lag     Duration `yaml:"lag"`
	Handler string   `yaml:"handler"`
}

// ReactionSpec declares one reaction. Body names a registered reaction body
// constructor (pkg/config/bodies.go); Args are passed through to it.
type ReactionSpec struct {
	Name               string            `yaml:"name"`
	Body               string            `yaml:"body"`
	Args               map[string]string `yaml:"args,omitempty"`
	Trigger            RelationSpec      `yaml:"trigger,omitempty"`
	TriggerAndUse      RelationSpec      `yaml:"triggerAndUse,omitempty"`
	Use                RelationSpec      `yaml:"use,omitempty"`
	Effect             RelationSpec      `yaml:"effect,omitempty"`
	TriggerAndEffect   RelationSpec      `yaml:"triggerAndEffect,omitempty"`
	Schedulable        []string          `yaml:"schedulable,omitempty"` // actions this reaction may schedule without triggering on
	Deadline           *DeadlineSpec     `yaml:"deadline,omitempty"`
}

// ConnectionSpec binds src to sink via Builder.ConnectPorts, FQN-addressed.
type ConnectionSpec struct {
	From     string    `yaml:"from"`
	To       string    `yaml:"to"`
	After    *Duration `yaml:"after,omitempty"`
	Physical bool      `yaml:"physical,omitempty"`
}

// LoadManifest reads and parses a topology manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
