// Package builder is the topology compiler: it accumulates reactor, port,
// action, reaction and connection declarations, validates every precondition
// incrementally, builds the reaction dependency graph via pkg/graph, and
// lowers the accepted topology into one pkg/runtime.Env plus ReactionGraph
// per enclave.
//
// Every public operation returns a typed key or a *builderr.BuilderError;
// nothing here panics on bad input. Builder is not safe for concurrent use —
// a topology is declared single-threaded, then frozen by Finish.
package builder
