// Package runtime holds the flat, lowered representation of one enclave's
// topology: the Env (reactors, ports, actions, reactions by runtime key) and
// the ReactionGraph (trigger tables and per-reaction argument lists) that
// pkg/builder produces and pkg/scheduler drives.
//
// Everything here is addressed by key, never by pointer into another arena,
// so Env values can be copied, inspected and handed to a scheduler worker
// goroutine without aliasing surprises. The one exception is port and action
// values themselves, which reaction bodies reach through the typed
// reference-partitioning helpers in refs.go.
package runtime
