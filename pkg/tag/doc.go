// Package tag implements the logical clock used throughout reactix: a pair of
// (offset, microstep) totally ordered lexicographically, plus the arithmetic
// operations connections and actions need (delay, pre) and the translation to
// wall-clock instants.
package tag
