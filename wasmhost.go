package wasmhost

// Sizing defaults shared by the runtime, the engine and the CLI.
// Values mirror what small dual-core microcontroller targets tolerate:
// the pool floor keeps the engine's own bookkeeping viable, the module
// ceilings keep a single module from starving the pool.
const (
	// DefaultHeapPoolSize is the global pool handed to the engine when
	// the host does not choose one.
	DefaultHeapPoolSize uint32 = 128 * 1024

	// MinHeapPoolSize is the smallest pool the engine can operate in.
	MinHeapPoolSize uint32 = 16 * 1024

	// DefaultModuleHeapSize is the per-module heap carved from the pool
	// when Load is given a zero heap hint.
	DefaultModuleHeapSize uint32 = 64 * 1024

	// MaxModuleHeapSize caps the per-module heap hint.
	MaxModuleHeapSize uint32 = 512 * 1024

	// DefaultExecStackSize is the execution-context stack used when
	// Load is given a zero stack hint.
	DefaultExecStackSize uint32 = 16 * 1024

	// MinExecStackSize is the smallest execution-context stack the
	// engine will accept.
	MinExecStackSize uint32 = 1024

	// DefaultThreadStackSize is the worker stack budget for safe-path
	// calls. It must cover the execution stack of whatever module the
	// worker runs.
	DefaultThreadStackSize uint32 = 32 * 1024

	// MinThreadStackSize is the floor for SetThreadStackSize.
	MinThreadStackSize uint32 = 4 * 1024
)
