// Package enclave defines the async message protocol and logical-time
// barriers that coordinate independent scheduling domains. Each Enclave owns
// one runtime.Env, one inbound event channel, and a LogicalTimeBarrier per
// upstream enclave it depends on; pkg/scheduler drives the actual event loop
// against these.
package enclave
