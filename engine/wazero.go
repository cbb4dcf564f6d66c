package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmhost "github.com/embedwasm/wasm-host"
)

const wasmPageSize = 64 * 1024

// exception text is bounded like the rest of the diagnostic surface
const maxExceptionLen = 128

// Config holds configuration for engine creation.
type Config struct {
	// Pool is the global heap buffer the engine operates in. Its length
	// bounds everything the engine may claim: module carve-outs and
	// execution-context stacks. Required.
	Pool []byte

	// MemoryLimitPages caps instance linear memory in 64KB pages.
	// 0 derives the cap from the pool size.
	MemoryLimitPages uint32
}

// WazeroEngine executes sandboxed bytecode via wazero. Lifecycle calls
// (New, Close) must not race; per-instance calls are non-reentrant from
// multiple goroutines simultaneously.
type WazeroEngine struct {
	runtime wazero.Runtime
	pool    ledger
	closed  bool
}

// New creates an engine bound to the given pool buffer.
func New(ctx context.Context, cfg Config) (*WazeroEngine, error) {
	if len(cfg.Pool) == 0 {
		return nil, fmt.Errorf("engine: no pool buffer configured")
	}

	pages := cfg.MemoryLimitPages
	if pages == 0 {
		pages = uint32(len(cfg.Pool) / wasmPageSize)
		if pages == 0 {
			pages = 1
		}
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(pages)

	e := &WazeroEngine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
	}
	e.pool.capacity = uint64(len(cfg.Pool))

	Logger().Info("engine initialized",
		zap.Uint64("pool_bytes", e.pool.capacity),
		zap.Uint32("memory_limit_pages", pages))

	return e, nil
}

// Close tears the engine down. Safe to call exactly once per New; any
// live instances become invalid.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(ctx)
}

// PoolStats reports the pool budget and outstanding claims.
func (e *WazeroEngine) PoolStats() (capacity, inUse uint64) {
	return e.pool.stats()
}

// CompiledUnit is a validated, not-yet-instantiated bytecode artifact.
type CompiledUnit struct {
	compiled wazero.CompiledModule
	size     uint32
}

// Compile validates and compiles a bytecode unit. Malformed input
// (bad magic, truncated section, unsupported opcode) fails with the
// engine's diagnostic text; nothing is retained on failure.
func (e *WazeroEngine) Compile(ctx context.Context, wasm []byte) (*CompiledUnit, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return &CompiledUnit{compiled: compiled, size: uint32(len(wasm))}, nil
}

// Unload releases a compiled unit. The unit's instances must already be
// deinstantiated.
func (e *WazeroEngine) Unload(ctx context.Context, unit *CompiledUnit) {
	if unit == nil || unit.compiled == nil {
		return
	}
	if err := unit.compiled.Close(ctx); err != nil {
		Logger().Warn("unload compiled unit", zap.Error(err))
	}
	unit.compiled = nil
}

// Size returns the byte length of the unit's source.
func (u *CompiledUnit) Size() uint32 {
	return u.size
}

// ExportInfo describes one exported function of a compiled unit.
type ExportInfo struct {
	Name        string
	ParamCount  int
	ResultCount int
}

// Exports lists the unit's exported functions.
func (u *CompiledUnit) Exports() []ExportInfo {
	if u == nil || u.compiled == nil {
		return nil
	}
	defs := u.compiled.ExportedFunctions()
	infos := make([]ExportInfo, 0, len(defs))
	for name, def := range defs {
		infos = append(infos, ExportInfo{
			Name:        name,
			ParamCount:  len(def.ParamTypes()),
			ResultCount: len(def.ResultTypes()),
		})
	}
	return infos
}

// Instance is an instantiated module: linear memory, globals and the
// exported function table. Exclusively owned by one controller.
type Instance struct {
	mod       api.Module
	charge    uint64
	exception string
}

// Instantiate creates an instance of a compiled unit, charging the
// stack and heap hints against the pool. On failure the charge is
// returned and nothing is retained.
func (e *WazeroEngine) Instantiate(ctx context.Context, unit *CompiledUnit, stackSize, heapSize uint32) (*Instance, error) {
	if unit == nil || unit.compiled == nil {
		return nil, fmt.Errorf("engine: instantiate on released unit")
	}

	charge := uint64(stackSize) + uint64(heapSize)
	if err := e.pool.reserve(charge); err != nil {
		return nil, err
	}

	mod, err := e.runtime.InstantiateModule(ctx, unit.compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		e.pool.release(charge)
		return nil, err
	}

	return &Instance{mod: mod, charge: charge}, nil
}

// Deinstantiate destroys an instance and returns its pool charge.
// Must precede Unload of the owning unit.
func (e *WazeroEngine) Deinstantiate(ctx context.Context, inst *Instance) {
	if inst == nil || inst.mod == nil {
		return
	}
	if err := inst.mod.Close(ctx); err != nil {
		Logger().Warn("deinstantiate module", zap.Error(err))
	}
	inst.mod = nil
	e.pool.release(inst.charge)
	inst.charge = 0
}

// Exception returns the pending trap description for the instance, or
// "" if the last call completed cleanly.
func (e *WazeroEngine) Exception(inst *Instance) string {
	if inst == nil {
		return ""
	}
	return inst.exception
}

// Lookup resolves an exported function by name.
func (e *WazeroEngine) Lookup(inst *Instance, name string) (api.Function, bool) {
	if inst == nil || inst.mod == nil {
		return nil, false
	}
	fn := inst.mod.ExportedFunction(name)
	return fn, fn != nil
}

// ExecContext is the per-call stack/state region required to run any
// function. It is bound to one instance, never shared across calls and
// never outlives the invocation that created it.
type ExecContext struct {
	inst   *Instance
	stack  []uint64
	charge uint64
}

// NewExecContext carves a call stack for one invocation out of the
// pool. stackSize below the engine minimum is rejected.
func (e *WazeroEngine) NewExecContext(inst *Instance, stackSize uint32) (*ExecContext, error) {
	if inst == nil || inst.mod == nil {
		return nil, fmt.Errorf("engine: exec context on released instance")
	}
	if stackSize < wasmhost.MinExecStackSize {
		return nil, fmt.Errorf("engine: stack size %d below minimum %d",
			stackSize, wasmhost.MinExecStackSize)
	}
	if err := e.pool.reserve(uint64(stackSize)); err != nil {
		return nil, err
	}

	slots := stackSize / 8
	if slots > 1024 {
		slots = 1024
	}

	return &ExecContext{
		inst:   inst,
		stack:  make([]uint64, slots),
		charge: uint64(stackSize),
	}, nil
}

// DestroyExecContext releases the context's stack charge. Idempotent.
func (e *WazeroEngine) DestroyExecContext(ec *ExecContext) {
	if ec == nil || ec.stack == nil {
		return
	}
	ec.stack = nil
	e.pool.release(ec.charge)
	ec.charge = 0
}

// Call invokes fn inside ec with raw u32 argument slots. On success the
// first len(results) slots of argv are overwritten with the return
// values. On failure the trap description is recorded on the instance
// and the raw error returned.
func (e *WazeroEngine) Call(ctx context.Context, ec *ExecContext, fn api.Function, argv []uint32) error {
	if ec == nil || ec.stack == nil {
		return fmt.Errorf("engine: call on destroyed exec context")
	}

	def := fn.Definition()
	params := def.ParamTypes()
	results := def.ResultTypes()

	if len(argv) < len(params) {
		err := fmt.Errorf("argument count mismatch: %d supplied, %d required",
			len(argv), len(params))
		ec.inst.exception = truncate(err.Error())
		return err
	}

	need := len(params)
	if len(results) > need {
		need = len(results)
	}
	if need > len(ec.stack) {
		err := fmt.Errorf("stack exhausted: %d slots required, %d available",
			need, len(ec.stack))
		ec.inst.exception = truncate(err.Error())
		return err
	}

	for i := range params {
		ec.stack[i] = uint64(argv[i])
	}

	if err := fn.CallWithStack(ctx, ec.stack[:need]); err != nil {
		ec.inst.exception = truncate(firstLine(err.Error()))
		return err
	}

	ec.inst.exception = ""
	for i := range results {
		if i >= len(argv) {
			break
		}
		argv[i] = uint32(ec.stack[i])
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string) string {
	if len(s) > maxExceptionLen {
		return s[:maxExceptionLen]
	}
	return s
}
