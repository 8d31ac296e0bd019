// Package graph builds the reaction dependency DAG, detects cycles with a
// minimal witness path, and assigns each reaction a Coffman–Graham level:
// the length of its longest incoming path, so that every edge A -> B
// satisfies level(A) < level(B).
//
// It operates purely on keys.ReactionKey so pkg/builder can run it before
// any runtime lowering has happened.
package graph
