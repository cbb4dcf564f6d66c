package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	wasmhost "github.com/embedwasm/wasm-host"
	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/errors"
	"github.com/embedwasm/wasm-host/mempool"
)

// Config holds runtime construction options.
type Config struct {
	// Selector chooses the memory tier for the global heap buffer.
	// nil selects the default external-then-internal layout.
	Selector *mempool.Selector

	// MemoryLimitPages is passed through to the engine. 0 derives the
	// cap from the pool size.
	MemoryLimitPages uint32
}

// Runtime gates a single live engine and owns the global heap buffer.
// Begin/End may be called repeatedly in sequence but never
// concurrently; the runtime does not track live modules, so hosts must
// unload modules before End.
type Runtime struct {
	mu          sync.Mutex
	cfg         Config
	selector    *mempool.Selector
	eng         *engine.WazeroEngine
	heap        *mempool.Allocation
	natives     map[string][]engine.NativeSymbol
	nativeOrder []string
	lastErr     string
	initialized bool
}

// New creates an independent runtime. Most hosts use the process-wide
// Default instance through the package-level functions instead.
func New(cfg *Config) *Runtime {
	r := &Runtime{natives: make(map[string][]engine.NativeSymbol)}
	if cfg != nil {
		r.cfg = *cfg
		r.selector = cfg.Selector
	}
	return r
}

var std = New(nil)

// Default returns the process-wide runtime instance.
func Default() *Runtime { return std }

// Begin allocates the global heap pool and brings the engine up.
// Calling Begin on an initialized runtime is a no-op that reports
// success; it does not re-initialize.
func (r *Runtime) Begin(ctx context.Context, heapPoolSize uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		engine.Logger().Info("runtime already initialized")
		return nil
	}

	if heapPoolSize < wasmhost.MinHeapPoolSize {
		err := errors.Config(errors.StageBegin,
			"heap pool size %d below minimum %d", heapPoolSize, wasmhost.MinHeapPoolSize)
		r.lastErr = err.Detail
		engine.Logger().Error("runtime begin failed", zap.String("reason", r.lastErr))
		return err
	}

	if r.selector == nil {
		r.selector = mempool.DefaultSelector()
	}

	alloc, err := r.selector.Allocate(heapPoolSize)
	if err != nil {
		werr := errors.Exhausted(errors.StageBegin, heapPoolSize, err)
		r.lastErr = werr.Detail
		engine.Logger().Error("runtime begin failed",
			zap.Uint32("heap_pool_size", heapPoolSize), zap.Error(err))
		return werr
	}

	eng, err := engine.New(ctx, engine.Config{
		Pool:             alloc.Bytes,
		MemoryLimitPages: r.cfg.MemoryLimitPages,
	})
	if err != nil {
		alloc.Release()
		werr := errors.EngineInit(err)
		r.lastErr = werr.Detail
		engine.Logger().Error("runtime begin failed", zap.Error(err))
		return werr
	}

	for _, ns := range r.nativeOrder {
		if err := eng.RegisterNatives(ctx, ns, r.natives[ns]); err != nil {
			eng.Close(ctx)
			alloc.Release()
			werr := errors.Wrap(errors.StageBegin, errors.KindEngineInit, err, "register natives")
			r.lastErr = werr.Detail
			return werr
		}
	}

	r.eng = eng
	r.heap = alloc
	r.initialized = true

	engine.Logger().Info("runtime initialized",
		zap.Uint32("heap_pool_size", heapPoolSize),
		zap.String("memory_class", alloc.Class.String()))
	return nil
}

// End tears the engine down and releases the global heap buffer.
// No-op on an uninitialized runtime.
func (r *Runtime) End(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}

	if err := r.eng.Close(ctx); err != nil {
		engine.Logger().Warn("engine close", zap.Error(err))
	}
	r.heap.Release()
	r.eng = nil
	r.heap = nil
	r.initialized = false

	engine.Logger().Info("runtime shutdown complete")
}

// IsInitialized reports whether a Begin succeeded without a later End.
func (r *Runtime) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Err returns the most recent Begin failure reason. It persists until
// overwritten by the next failure.
func (r *Runtime) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// RegisterNatives records a native-function table for the given import
// namespace. Registrations made before Begin are applied during Begin;
// registrations on an initialized runtime apply immediately. Symbols
// must be registered before any module that imports them is loaded.
func (r *Runtime) RegisterNatives(ctx context.Context, namespace string, syms []engine.NativeSymbol) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.natives[namespace]; !dup {
		r.nativeOrder = append(r.nativeOrder, namespace)
	}
	r.natives[namespace] = syms

	if !r.initialized {
		return nil
	}
	return r.eng.RegisterNatives(ctx, namespace, syms)
}

// PoolStats reports the engine pool budget and outstanding claims, or
// zeros when the runtime is down.
func (r *Runtime) PoolStats() (capacity, inUse uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return 0, 0
	}
	return r.eng.PoolStats()
}

// LogMemoryUsage writes the pool and per-tier budgets to the
// diagnostic sink.
func (r *Runtime) LogMemoryUsage() {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := engine.Logger()
	if r.initialized {
		capacity, inUse := r.eng.PoolStats()
		log.Info("engine pool",
			zap.Uint64("capacity", capacity),
			zap.Uint64("in_use", inUse))
	} else {
		log.Info("engine pool", zap.String("state", "uninitialized"))
	}

	if r.selector == nil {
		return
	}
	for _, src := range r.selector.Sources() {
		log.Info("memory source",
			zap.String("class", src.Class().String()),
			zap.Uint32("capacity", src.Capacity()),
			zap.Uint32("in_use", src.InUse()))
	}
}

// engineHandle returns the live engine, if any. Modules use it so that
// teardown after End degrades to dropping handles.
func (r *Runtime) engineHandle() (*engine.WazeroEngine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng, r.initialized
}

// Package-level forwarding to the Default runtime.

func Begin(ctx context.Context, heapPoolSize uint32) error { return std.Begin(ctx, heapPoolSize) }

func End(ctx context.Context) { std.End(ctx) }

func IsInitialized() bool { return std.IsInitialized() }

func Err() string { return std.Err() }

func PoolStats() (capacity, inUse uint64) { return std.PoolStats() }

func RegisterNatives(ctx context.Context, namespace string, syms []engine.NativeSymbol) error {
	return std.RegisterNatives(ctx, namespace, syms)
}

func LogMemoryUsage() { std.LogMemoryUsage() }
