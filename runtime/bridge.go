package runtime

import (
	"context"
	goruntime "runtime"

	"go.uber.org/zap"

	wasmhost "github.com/embedwasm/wasm-host"
	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/errors"
)

// threadStackSize is the worker stack budget for safe-path calls.
// Process-wide, consumed on the next CallFunction. Set before use; it
// is not synchronized against in-flight calls.
var threadStackSize = wasmhost.DefaultThreadStackSize

// SetThreadStackSize configures the worker stack budget for safe-path
// calls. It applies to all modules and has no effect on workers already
// running or on the raw path.
func SetThreadStackSize(size uint32) {
	threadStackSize = size
}

// CallFunction invokes an exported function on a dedicated worker and
// blocks until it finishes. This is the safe default for callers on a
// cooperative main loop that does not satisfy the engine's
// execution-context requirements. Each call is a complete
// create/run/join cycle; no worker survives the call.
func (m *Module) CallFunction(ctx context.Context, name string, argv []uint32) error {
	workerStack := threadStackSize

	if workerStack < wasmhost.MinThreadStackSize {
		m.setErr("worker stack size %d below minimum %d", workerStack, wasmhost.MinThreadStackSize)
		return errors.ThreadCreate("worker stack size %d below minimum %d",
			workerStack, wasmhost.MinThreadStackSize)
	}

	// The worker's stack must cover the module's execution stack; a
	// short worker would fault mid-call on a native target, so refuse
	// up front with the same trap surface.
	if m.loaded && m.execStackSize > workerStack {
		m.setErr("exception: stack exhausted: execution stack %d exceeds worker stack %d",
			m.execStackSize, workerStack)
		return errors.Trap(m.errBuf)
	}

	done := make(chan error, 1)
	go func() {
		goruntime.LockOSThread()
		defer goruntime.UnlockOSThread()
		done <- m.invoke(ctx, name, argv)
	}()
	return <-done
}

// CallFunctionRaw invokes an exported function on the calling
// goroutine, with no worker handoff. The caller must already satisfy
// the engine's execution-context requirements; calling it from a
// context that does not is unsupported. No validity probe is performed,
// so the raw path stays overhead-free.
func (m *Module) CallFunctionRaw(ctx context.Context, name string, argv []uint32) error {
	return m.invoke(ctx, name, argv)
}

// invoke is the single call primitive shared by both paths: lookup,
// fresh execution context, engine call, unconditional context teardown,
// trap surfacing, result caching.
func (m *Module) invoke(ctx context.Context, name string, argv []uint32) error {
	eng, ok := m.rt.engineHandle()
	if !ok || !m.loaded {
		m.setErr("module not loaded")
		return errors.New(errors.StageCall, errors.KindCallFailed, "module not loaded")
	}

	fn, found := eng.Lookup(m.inst, name)
	if !found {
		m.setErr("function '%s' not found", name)
		return errors.NotFound(name)
	}

	ec, err := eng.NewExecContext(m.inst, m.execStackSize)
	if err != nil {
		m.setErr("failed to create execution context: %v", err)
		return errors.ContextCreation(err)
	}
	defer eng.DestroyExecContext(ec)

	if err := eng.Call(ctx, ec, fn, argv); err != nil {
		if exc := eng.Exception(m.inst); exc != "" {
			m.setErr("exception: %s", exc)
			return errors.Trap(exc)
		}
		m.setErr("function call failed")
		return errors.CallFailed(name, err)
	}

	if len(argv) > 0 {
		m.lastResult = argv[0]
	}
	m.errBuf = ""

	engine.Logger().Debug("call completed",
		zap.String("module", m.id),
		zap.String("function", name))
	return nil
}
