// Package engine wraps the wazero runtime behind the narrow contract
// the adapter needs: compile, instantiate, per-call execution contexts,
// raw u32 argument-slot calls and trap capture.
//
// The engine operates inside a fixed memory pool handed over at
// creation. Module carve-outs and execution-context stacks are charged
// against that pool, so exhaustion produces a deterministic error at
// the call site instead of pressuring the host allocator.
package engine
