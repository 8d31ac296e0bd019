package enclave

import (
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/tag"
)

// MessageType discriminates the handful of async messages enclaves exchange.
// A single tagged struct (rather than an interface hierarchy) keeps the
// scheduler's receive loop a plain type switch on this field.
type MessageType string

const (
	// MsgLogical schedules value on Action at Tag. Nothing in this module sends
	// it; cross-enclave port values travel as MsgPortDelivery.
	MsgLogical MessageType = "logical"
	// MsgPhysical schedules value on Action at the logical tag corresponding
	// to At, a physical-connection delivery with no upstream barrier.
	MsgPhysical MessageType = "physical"
	// MsgPortDelivery mirrors a cross-enclave port write into Port's Value,
	// per a builder.CrossEnclaveLink.
	MsgPortDelivery MessageType = "port_delivery"
	// MsgTagRelease announces that From will never send anything at or below
	// Tag again: a hard, monotonic barrier release.
	MsgTagRelease MessageType = "tag_release"
	// MsgTagReleaseProvisional is the soft counterpart of MsgTagRelease, sent
	// when From expects not to produce below Tag but cannot yet guarantee it
	// (used to break symmetric upstream/downstream waits in delayed cycles).
	MsgTagReleaseProvisional MessageType = "tag_release_provisional"
	// MsgShutdown requests termination after Delay.
	MsgShutdown MessageType = "shutdown"
)

// Message is the single envelope type carried on every Enclave.Events
// channel and every upstream/downstream link.
type Message struct {
	Type MessageType

	Tag    tag.Tag   // Logical, PortDelivery, TagRelease, TagReleaseProvisional
	At     time.Time // Physical
	Delay  time.Duration // Shutdown

	Action keys.RuntimeActionKey // Logical, Physical
	Port   keys.RuntimePortKey   // PortDelivery
	Value  any                   // Logical, Physical, PortDelivery

	From keys.EnclaveKey // TagRelease, TagReleaseProvisional, PortDelivery: sender
}
