package scheduler

import (
	"sort"

	"github.com/cuemby/reactix/pkg/keys"
)

// ReactionSet is a level-indexed set of reactions: fast insertion of a
// (level, reaction) pair, and iteration by ascending level. Reactions at a
// level already visited within the same process_tag call are never
// revisited; new insertions during dispatch always land at a strictly
// greater level than the one currently being processed, so growing the set
// mid-iteration is safe (see Scheduler.ProcessTag).
type ReactionSet struct {
	members map[int]map[keys.RuntimeReactionKey]struct{}
	levels  []int
}

func newReactionSet() *ReactionSet {
	return &ReactionSet{members: make(map[int]map[keys.RuntimeReactionKey]struct{})}
}

// Add inserts reaction at level, a no-op if already present there.
func (s *ReactionSet) Add(level int, r keys.RuntimeReactionKey) {
	set, ok := s.members[level]
	if !ok {
		set = make(map[keys.RuntimeReactionKey]struct{})
		s.members[level] = set
		i := sort.SearchInts(s.levels, level)
		s.levels = append(s.levels, 0)
		copy(s.levels[i+1:], s.levels[i:])
		s.levels[i] = level
	}
	set[r] = struct{}{}
}

// Merge unions other's members into s.
func (s *ReactionSet) Merge(other *ReactionSet) {
	for level, set := range other.members {
		for r := range set {
			s.Add(level, r)
		}
	}
}

// LevelCount returns how many distinct levels currently hold a reaction.
// Safe to call repeatedly while a caller is also calling Add against this
// same set, since new levels only ever land past the already-sorted prefix.
func (s *ReactionSet) LevelCount() int { return len(s.levels) }

// LevelAt returns the i-th smallest level present in the set.
func (s *ReactionSet) LevelAt(i int) int { return s.levels[i] }

// At returns the reactions at level, in a deterministic (sorted-key) order.
// The scheduler further sorts by declared priority before dispatch.
func (s *ReactionSet) At(level int) []keys.RuntimeReactionKey {
	set := s.members[level]
	out := make([]keys.RuntimeReactionKey, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsEmpty reports whether the set holds no reactions at any level.
func (s *ReactionSet) IsEmpty() bool { return len(s.levels) == 0 }

// Reset empties the set in place, keeping its internal maps allocated for
// reuse by the event queue's freelist.
func (s *ReactionSet) Reset() {
	for _, level := range s.levels {
		set := s.members[level]
		for r := range set {
			delete(set, r)
		}
	}
	s.levels = s.levels[:0]
}
