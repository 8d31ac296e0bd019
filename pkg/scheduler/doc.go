// Package scheduler runs one enclave's discrete-event loop: a min-heap event
// queue ordered by logical tag, level-ascending reaction dispatch within a
// tag, wall-clock synchronization, and the upstream-barrier protocol that
// keeps cross-enclave tags ordered.
package scheduler
