// Package types defines the declarative vocabulary shared by the builder and
// the runtime: reactors, ports, actions, and the trigger-mode relations a
// reaction can declare against them. These are plain data, no behavior, so
// both pkg/builder (which mutates them while a topology is being declared) and
// pkg/runtime (which reads them once lowered) can depend on them without a
// cycle.
package types
