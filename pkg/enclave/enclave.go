package enclave

import (
	"time"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/cuemby/reactix/pkg/runtime"
)

// eventBuffer approximates the spec's unbounded MPSC channel with a large
// fixed buffer; a sender blocks only if a downstream enclave falls this far
// behind, which in practice means it has stalled.
const eventBuffer = 4096

// OutLink mirrors one cross-enclave bind/connect: whenever HomePort is
// written, this enclave forwards the value to To's DownPort after Delay.
// Produced from builder.CrossEnclaveLink by the topology assembly step.
type OutLink struct {
	HomePort keys.RuntimePortKey
	To       keys.EnclaveKey
	DownPort keys.RuntimePortKey
	Delay    time.Duration
}

// Enclave is one independently scheduled partition: its own Env, its own
// inbound event channel, and one LogicalTimeBarrier per upstream enclave it
// has a connection from.
type Enclave struct {
	Key    keys.EnclaveKey
	Env    *runtime.Env
	Events chan Message

	Upstream   map[keys.EnclaveKey]*LogicalTimeBarrier
	Downstream map[keys.EnclaveKey]chan Message
	OutLinks   []OutLink

	done chan struct{}
}

// New returns an empty Enclave ready to be linked and scheduled.
func New(key keys.EnclaveKey, env *runtime.Env) *Enclave {
	return &Enclave{
		Key:        key,
		Env:        env,
		Events:     make(chan Message, eventBuffer),
		Upstream:   make(map[keys.EnclaveKey]*LogicalTimeBarrier),
		Downstream: make(map[keys.EnclaveKey]chan Message),
		done:       make(chan struct{}),
	}
}

// LinkUpstream registers from as a source this enclave must wait on for tags
// reached through a connection carrying delay, returning the barrier the
// upstream scheduler will release as it makes progress.
func (e *Enclave) LinkUpstream(from keys.EnclaveKey, delay time.Duration) *LogicalTimeBarrier {
	b, ok := e.Upstream[from]
	if ok {
		return b
	}
	b = NewLogicalTimeBarrier(delay)
	e.Upstream[from] = b
	return b
}

// LinkDownstream registers to's inbound channel as a destination this
// enclave forwards messages to.
func (e *Enclave) LinkDownstream(to keys.EnclaveKey, ch chan Message) {
	e.Downstream[to] = ch
}

// Send delivers msg to to's inbound channel, or drops it silently once this
// enclave has been closed.
func (e *Enclave) Send(to keys.EnclaveKey, msg Message) {
	ch, ok := e.Downstream[to]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	case <-e.done:
	}
}

// Broadcast sends msg to every downstream enclave, used for TagRelease and
// Shutdown propagation.
func (e *Enclave) Broadcast(msg Message) {
	for to := range e.Downstream {
		e.Send(to, msg)
	}
}

// Close signals that no further sends will be accepted and unblocks any
// goroutine parked in Send.
func (e *Enclave) Close() {
	close(e.done)
}

// Done returns the channel that closes once Close has been called. A
// scheduler's blocking waits on Events select on this too, so a process-wide
// keepalive trigger unblocks every enclave's event loop at once.
func (e *Enclave) Done() <-chan struct{} {
	return e.done
}
