package enclave

import (
	"sync"
	"time"

	"github.com/cuemby/reactix/pkg/tag"
)

// LogicalTimeBarrier is the downstream-side view of one upstream enclave's
// progress. ReleasedTag is a lower bound on "every event this upstream will
// ever emit is at a tag strictly after this one" — a downstream may process
// tag t as soon as t.Pre(delay) is no later than ReleasedTag for every
// upstream it depends on.
type LogicalTimeBarrier struct {
	mu sync.Mutex

	delay       time.Duration
	releasedTag tag.Tag
	provisional tag.Tag
}

// NewLogicalTimeBarrier returns a barrier for a link carrying the given
// minimum delay, with nothing yet released.
func NewLogicalTimeBarrier(delay time.Duration) *LogicalTimeBarrier {
	return &LogicalTimeBarrier{delay: delay, releasedTag: tag.NEVER, provisional: tag.NEVER}
}

// Delay returns the link's minimum delay, used to compute t.Pre(delay).
func (b *LogicalTimeBarrier) Delay() time.Duration {
	return b.delay
}

// CanAcquire reports whether the downstream may process t given what this
// upstream has released so far.
func (b *LogicalTimeBarrier) CanAcquire(t tag.Tag) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	upstream := t.Pre(b.delay)
	return !upstream.After(b.releasedTag)
}

// Release records a hard, monotonic guarantee from the upstream: it will
// never again produce at or below t. Releases older than what's already
// recorded are ignored.
func (b *LogicalTimeBarrier) Release(t tag.Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.After(b.releasedTag) {
		b.releasedTag = t
	}
	b.provisional = tag.NEVER
}

// ReleaseProvisional records a soft guarantee, used to unblock a symmetric
// upstream/downstream wait across a delayed cycle. A provisional release at
// or above a previously recorded provisional upgrades ReleasedTag directly;
// this module does not implement the full two-phase provisional/confirm
// handshake, trading a small amount of extra optimism at cycle boundaries
// for a much simpler barrier (see DESIGN.md).
func (b *LogicalTimeBarrier) ReleaseProvisional(t tag.Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.After(b.provisional) {
		b.provisional = t
	}
	if t.After(b.releasedTag) {
		b.releasedTag = t
	}
}

// ReleasedTag returns the current hard release point.
func (b *LogicalTimeBarrier) ReleasedTag() tag.Tag {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releasedTag
}
