package runtime

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	wasmhost "github.com/embedwasm/wasm-host"
	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/errors"
)

// errBufSize bounds the per-module error buffer.
const errBufSize = 128

// Module owns one loaded bytecode unit: the compiled artifact, its
// instance and the stack hint used for per-call execution contexts.
// A Module is single-writer; its result and error registers carry no
// locking.
type Module struct {
	rt            *Runtime
	id            string
	unit          *engine.CompiledUnit
	inst          *engine.Instance
	execStackSize uint32
	lastResult    uint32
	errBuf        string
	loaded        bool
}

// NewModule creates a controller bound to the Default runtime.
func NewModule() *Module { return std.NewModule() }

// NewModule creates a controller bound to r.
func (r *Runtime) NewModule() *Module {
	return &Module{rt: r, id: uuid.NewString()[:8]}
}

// Load validates, compiles and instantiates a bytecode unit. Any module
// previously held by this controller is fully torn down first. Zero
// size hints select the defaults; the heap hint is capped.
func (m *Module) Load(ctx context.Context, wasm []byte, stackSize, heapSize uint32) error {
	if _, ok := m.rt.engineHandle(); !ok {
		m.setErr("runtime not initialized")
		return errors.NotReady(errors.StageLoad)
	}

	if stackSize == 0 {
		stackSize = wasmhost.DefaultExecStackSize
	}
	if heapSize == 0 {
		heapSize = wasmhost.DefaultModuleHeapSize
	}
	if heapSize > wasmhost.MaxModuleHeapSize {
		m.setErr("module heap size %d exceeds maximum %d", heapSize, wasmhost.MaxModuleHeapSize)
		return errors.Config(errors.StageLoad, "module heap size %d exceeds maximum %d",
			heapSize, wasmhost.MaxModuleHeapSize)
	}

	m.Unload(ctx)

	eng, ok := m.rt.engineHandle()
	if !ok {
		m.setErr("runtime not initialized")
		return errors.NotReady(errors.StageLoad)
	}

	engine.Logger().Info("loading module",
		zap.String("module", m.id),
		zap.Int("bytes", len(wasm)))

	unit, err := eng.Compile(ctx, wasm)
	if err != nil {
		m.setErr("failed to load module: %v", err)
		return errors.Load(err)
	}

	inst, err := eng.Instantiate(ctx, unit, stackSize, heapSize)
	if err != nil {
		eng.Unload(ctx, unit)
		m.setErr("failed to instantiate module: %v", err)
		return errors.Instantiate(err)
	}

	m.unit = unit
	m.inst = inst
	m.execStackSize = stackSize
	m.loaded = true
	m.errBuf = ""

	engine.Logger().Info("module ready",
		zap.String("module", m.id),
		zap.Uint32("exec_stack", stackSize),
		zap.Uint32("module_heap", heapSize))
	return nil
}

// Unload destroys the instance, then the compiled unit, and resets the
// controller to its not-loaded state. Idempotent; safe on a never-
// loaded controller. After the runtime has ended, held handles are
// dropped without engine calls.
func (m *Module) Unload(ctx context.Context) {
	eng, ok := m.rt.engineHandle()

	if m.inst != nil {
		if ok {
			eng.Deinstantiate(ctx, m.inst)
		}
		m.inst = nil
	}
	if m.unit != nil {
		if ok {
			eng.Unload(ctx, m.unit)
		}
		m.unit = nil
	}

	m.loaded = false
	m.execStackSize = 0
	m.errBuf = ""
}

// Close unloads the module. Defer it at acquisition so the instance
// never outlives its controller on any exit path.
func (m *Module) Close(ctx context.Context) {
	m.Unload(ctx)
}

// Result returns output slot 0 of the most recent successful call.
// Stale after a failed call.
func (m *Module) Result() uint32 { return m.lastResult }

// Err returns the buffered error text of the most recent failing
// operation, or "" if the last operation succeeded.
func (m *Module) Err() string { return m.errBuf }

// IsLoaded reports whether the controller holds a live instance.
func (m *Module) IsLoaded() bool { return m.inst != nil }

// Exports lists the loaded unit's exported functions, sorted by name.
func (m *Module) Exports() []engine.ExportInfo {
	if m.unit == nil {
		return nil
	}
	infos := m.unit.Exports()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// setErr records bounded error text and mirrors it to the diagnostic
// sink.
func (m *Module) setErr(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > errBufSize {
		msg = msg[:errBufSize]
	}
	m.errBuf = msg
	engine.Logger().Error("module error",
		zap.String("module", m.id),
		zap.String("error", msg))
}
