// Package keys defines the dense integer key types used to name every reactor,
// port, action, reaction and enclave in a topology, plus the arena that stores
// values by key.
//
// Keys are allocated densely during build and stay stable for the program's
// lifetime. Builder-space keys (assigned while the topology is still being
// declared) and runtime-space keys (assigned during lowering) are distinct types
// so the two spaces can never be confused at compile time.
package keys
