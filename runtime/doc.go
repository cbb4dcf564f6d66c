// Package runtime provides the host-facing lifecycle API: the
// process-wide runtime, per-module controllers and the dual-path
// execution bridge.
//
// Hosts bring the runtime up once with Begin, load bytecode into Module
// controllers, call exported functions and tear everything down with
// End. CallFunction dispatches each call to a dedicated worker so it is
// safe from a cooperative main loop; CallFunctionRaw calls the engine
// directly and leaves the execution-context precondition to the caller.
package runtime
