// Package wasmhost adapts a sandboxed WebAssembly engine to
// resource-constrained, cooperatively scheduled host environments.
//
// The adapter owns three concerns: acquiring the engine's global heap
// pool from tiered memory sources, driving the per-module
// load/call/unload lifecycle, and bridging calls from a cooperative
// caller into the execution context the engine requires.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	wasmhost/      Root package with sizing constants shared across layers
//	├── runtime/   Runtime lifecycle, module controllers, execution bridge
//	├── engine/    wazero integration, pool ledger, execution contexts
//	├── mempool/   Tiered memory sources and the capability selector
//	└── errors/    Structured error types for every failure stage
//
// # Quick Start
//
// Bring the runtime up once, then load and call modules:
//
//	if err := runtime.Begin(ctx, wasmhost.DefaultHeapPoolSize); err != nil {
//	    log.Fatal(err)
//	}
//	defer runtime.End(ctx)
//
//	mod := runtime.NewModule()
//	defer mod.Close(ctx)
//
//	if err := mod.Load(ctx, wasmBytes, 0, 0); err != nil {
//	    log.Fatal(err)
//	}
//
//	argv := []uint32{42, 58}
//	if err := mod.CallFunction(ctx, "add", argv); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(argv[0]) // 100
//
// # Call Paths
//
// CallFunction dispatches every call to a dedicated worker and joins it
// before returning, so it is safe from the host's main loop.
// CallFunctionRaw skips the worker handoff; the caller must already
// satisfy the engine's execution-context requirements.
//
// # Memory Model
//
// The runtime draws one global heap buffer from the memory source
// selector at Begin and hands it to the engine's pool allocator. Module
// linear memory, module heaps and execution-context stacks are all
// budgeted against that single pool, so allocation failures surface as
// deterministic errors rather than host memory pressure.
//
// # Thread Safety
//
// Runtime lifecycle operations must not run concurrently with each
// other. A Module is single-writer: its result and error registers
// carry no locking, so calls on one module must not overlap.
package wasmhost
