package scheduler

import (
	"container/heap"

	"github.com/cuemby/reactix/pkg/tag"
)

// ScheduledEvent is one entry in the event queue: every reaction due at Tag,
// and whether processing it should end the scheduler's run.
type ScheduledEvent struct {
	Tag       tag.Tag
	Reactions *ReactionSet
	Terminal  bool
}

type eventHeap []*ScheduledEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].Tag.Before(h[j].Tag) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)         { *h = append(*h, x.(*ScheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// EventQueue is the min-heap of ScheduledEvents described by §4.3: tag-merge
// on push when the new tag matches the current minimum, coalescing of any
// same-tag siblings on pop, and a ReactionSet freelist so steady-state
// scheduling does not allocate.
type EventQueue struct {
	h        eventHeap
	freelist []*ReactionSet
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.h)
	return q
}

// NewReactionSet returns a ReactionSet from the freelist if one is
// available, or a fresh one otherwise. Callers own the result until they
// pass it to Push or Release.
func (q *EventQueue) NewReactionSet() *ReactionSet {
	if n := len(q.freelist); n > 0 {
		rs := q.freelist[n-1]
		q.freelist = q.freelist[:n-1]
		return rs
	}
	return newReactionSet()
}

// Release returns rs to the freelist after clearing it.
func (q *EventQueue) Release(rs *ReactionSet) {
	rs.Reset()
	q.freelist = append(q.freelist, rs)
}

// Push inserts reactions due at t. If the current minimum already carries
// the same tag, reactions are merged into it in place (and rs released back
// to the freelist) rather than growing the heap.
func (q *EventQueue) Push(t tag.Tag, rs *ReactionSet, terminal bool) {
	if len(q.h) > 0 && q.h[0].Tag.Equal(t) {
		q.h[0].Reactions.Merge(rs)
		q.h[0].Terminal = q.h[0].Terminal || terminal
		q.Release(rs)
		return
	}
	heap.Push(&q.h, &ScheduledEvent{Tag: t, Reactions: rs, Terminal: terminal})
}

// PopNext removes and returns the minimum-tag event, coalescing any trailing
// heap entries that share its tag (which can arise when Push's fast-path
// merge missed them because they weren't at the top at push time).
func (q *EventQueue) PopNext() *ScheduledEvent {
	if len(q.h) == 0 {
		return nil
	}
	min := heap.Pop(&q.h).(*ScheduledEvent)
	for len(q.h) > 0 && q.h[0].Tag.Equal(min.Tag) {
		next := heap.Pop(&q.h).(*ScheduledEvent)
		min.Reactions.Merge(next.Reactions)
		min.Terminal = min.Terminal || next.Terminal
		q.Release(next.Reactions)
	}
	return min
}

// PeekTag returns the queue's minimum tag without consuming it.
func (q *EventQueue) PeekTag() (tag.Tag, bool) {
	if len(q.h) == 0 {
		return tag.Tag{}, false
	}
	return q.h[0].Tag, true
}

// Len returns the number of distinct-tag events currently queued.
func (q *EventQueue) Len() int { return len(q.h) }
