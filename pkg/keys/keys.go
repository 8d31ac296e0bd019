package keys

import "fmt"

// ReactorKey names a reactor instance in builder space.
type ReactorKey uint32

// PortKey names a port declaration in builder space.
type PortKey uint32

// ActionKey names an action declaration in builder space.
type ActionKey uint32

// ReactionKey names a reaction declaration in builder space.
type ReactionKey uint32

// EnclaveKey names an enclave partition, global across the whole program.
type EnclaveKey uint32

// RuntimePortKey names a canonical, materialized port within one enclave's Env.
type RuntimePortKey uint32

// RuntimeActionKey names an action within one enclave's Env.
type RuntimeActionKey uint32

// RuntimeReactorKey names a reactor within one enclave's Env.
type RuntimeReactorKey uint32

// RuntimeReactionKey names a reaction within one enclave's Env.
type RuntimeReactionKey uint32

func (k ReactorKey) String() string  { return fmt.Sprintf("reactor#%d", uint32(k)) }
func (k PortKey) String() string     { return fmt.Sprintf("port#%d", uint32(k)) }
func (k ActionKey) String() string   { return fmt.Sprintf("action#%d", uint32(k)) }
func (k ReactionKey) String() string { return fmt.Sprintf("reaction#%d", uint32(k)) }
func (k EnclaveKey) String() string  { return fmt.Sprintf("enclave#%d", uint32(k)) }

func (k RuntimePortKey) String() string     { return fmt.Sprintf("rport#%d", uint32(k)) }
func (k RuntimeActionKey) String() string   { return fmt.Sprintf("raction#%d", uint32(k)) }
func (k RuntimeReactorKey) String() string  { return fmt.Sprintf("rreactor#%d", uint32(k)) }
func (k RuntimeReactionKey) String() string { return fmt.Sprintf("rreaction#%d", uint32(k)) }

// Arena is a dense, append-only, slice-backed store keyed by any key type
// convertible to uint32. It is the sole navigation path between entities: no
// entity in this module holds a pointer into another entity's arena, only a key.
type Arena[K ~uint32, V any] struct {
	items []V
}

// Add appends a value and returns the key it was stored under.
func (a *Arena[K, V]) Add(v V) K {
	k := K(len(a.items))
	a.items = append(a.items, v)
	return k
}

// Get returns the value for key, and whether it exists.
func (a *Arena[K, V]) Get(k K) (V, bool) {
	i := uint32(k)
	if int(i) >= len(a.items) {
		var zero V
		return zero, false
	}
	return a.items[i], true
}

// MustGet returns the value for key, panicking if it does not exist. Use only
// where the key's validity is a structural invariant (e.g. keys resolved through
// an alias table built by the same lowering pass), never for user-supplied keys.
func (a *Arena[K, V]) MustGet(k K) V {
	v, ok := a.Get(k)
	if !ok {
		panic(fmt.Sprintf("keys: arena has no entry for %v", k))
	}
	return v
}

// Set overwrites the value stored at an existing key.
func (a *Arena[K, V]) Set(k K, v V) {
	a.items[uint32(k)] = v
}

// Len returns the number of entries in the arena.
func (a *Arena[K, V]) Len() int {
	return len(a.items)
}

// All iterates keys and values in key order.
func (a *Arena[K, V]) All(yield func(K, V) bool) {
	for i, v := range a.items {
		if !yield(K(i), v) {
			return
		}
	}
}

// Keys returns every key in the arena, in order.
func (a *Arena[K, V]) Keys() []K {
	out := make([]K, len(a.items))
	for i := range a.items {
		out[i] = K(i)
	}
	return out
}
