package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/embedwasm/wasm-host/internal/wasmgen"
)

func newTestEngine(t *testing.T, poolSize int) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	eng, err := New(ctx, Config{Pool: make([]byte, poolSize)})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })
	return eng
}

func TestNewRequiresPool(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing pool")
	}
}

func TestCompileBadMagic(t *testing.T) {
	eng := newTestEngine(t, 128*1024)

	_, err := eng.Compile(context.Background(), wasmgen.BadMagic())
	if err == nil {
		t.Fatal("expected compile error for bad magic")
	}
}

func TestCallAdd(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 64*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer eng.Deinstantiate(ctx, inst)

	fn, ok := eng.Lookup(inst, "add")
	if !ok {
		t.Fatal("add not found")
	}

	ec, err := eng.NewExecContext(inst, 16*1024)
	if err != nil {
		t.Fatalf("exec context: %v", err)
	}
	defer eng.DestroyExecContext(ec)

	argv := []uint32{42, 58}
	if err := eng.Call(ctx, ec, fn, argv); err != nil {
		t.Fatalf("call: %v", err)
	}
	if argv[0] != 100 {
		t.Errorf("argv[0] = %d, want 100", argv[0])
	}
	if exc := eng.Exception(inst); exc != "" {
		t.Errorf("unexpected exception %q", exc)
	}
}

func TestCallArgumentMismatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 16*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer eng.Deinstantiate(ctx, inst)

	fn, _ := eng.Lookup(inst, "add")
	ec, err := eng.NewExecContext(inst, 16*1024)
	if err != nil {
		t.Fatalf("exec context: %v", err)
	}
	defer eng.DestroyExecContext(ec)

	if err := eng.Call(ctx, ec, fn, []uint32{1}); err == nil {
		t.Fatal("expected argument count error")
	}
	if exc := eng.Exception(inst); !strings.Contains(exc, "argument count") {
		t.Errorf("exception = %q", exc)
	}
}

func TestTrapCapture(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	unit, err := eng.Compile(ctx, wasmgen.TrapModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 16*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer eng.Deinstantiate(ctx, inst)

	fn, ok := eng.Lookup(inst, "boom")
	if !ok {
		t.Fatal("boom not found")
	}

	ec, err := eng.NewExecContext(inst, 16*1024)
	if err != nil {
		t.Fatalf("exec context: %v", err)
	}
	defer eng.DestroyExecContext(ec)

	if err := eng.Call(ctx, ec, fn, nil); err == nil {
		t.Fatal("expected trap")
	}
	exc := eng.Exception(inst)
	if exc == "" {
		t.Fatal("no exception recorded")
	}
	if !strings.Contains(exc, "unreachable") {
		t.Errorf("exception = %q, want unreachable mention", exc)
	}
	if strings.Contains(exc, "\n") {
		t.Errorf("exception not single line: %q", exc)
	}
}

func TestPoolAccounting(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	capacity, inUse := eng.PoolStats()
	if capacity != 128*1024 || inUse != 0 {
		t.Fatalf("baseline stats = %d/%d", inUse, capacity)
	}

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 32*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	if _, inUse := eng.PoolStats(); inUse != 48*1024 {
		t.Errorf("in use after instantiate = %d, want %d", inUse, 48*1024)
	}

	ec, err := eng.NewExecContext(inst, 8*1024)
	if err != nil {
		t.Fatalf("exec context: %v", err)
	}
	if _, inUse := eng.PoolStats(); inUse != 56*1024 {
		t.Errorf("in use with exec context = %d, want %d", inUse, 56*1024)
	}

	eng.DestroyExecContext(ec)
	eng.DestroyExecContext(ec) // idempotent
	if _, inUse := eng.PoolStats(); inUse != 48*1024 {
		t.Errorf("in use after context destroy = %d", inUse)
	}

	eng.Deinstantiate(ctx, inst)
	if _, inUse := eng.PoolStats(); inUse != 0 {
		t.Errorf("in use after deinstantiate = %d, want 0", inUse)
	}
}

func TestInstantiatePoolExhaustion(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 32*1024)

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	if _, err := eng.Instantiate(ctx, unit, 16*1024, 64*1024); err == nil {
		t.Fatal("expected pool exhaustion")
	}
	if _, inUse := eng.PoolStats(); inUse != 0 {
		t.Errorf("failed instantiate retained %d bytes", inUse)
	}
}

func TestExecContextMinimumStack(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 16*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer eng.Deinstantiate(ctx, inst)

	if _, err := eng.NewExecContext(inst, 512); err == nil {
		t.Fatal("expected rejection below minimum stack")
	}
}

func TestExports(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	unit, err := eng.Compile(ctx, wasmgen.AddModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	exports := unit.Exports()
	if len(exports) != 1 {
		t.Fatalf("exports = %d, want 1", len(exports))
	}
	if exports[0].Name != "add" || exports[0].ParamCount != 2 || exports[0].ResultCount != 1 {
		t.Errorf("export = %+v", exports[0])
	}
}

func TestRegisterNatives(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, 128*1024)

	syms := []NativeSymbol{{
		Name: "mul",
		Fn: func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(uint32(stack[0]) * uint32(stack[1]))
		},
		Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
	}}
	if err := eng.RegisterNatives(ctx, "env", syms); err != nil {
		t.Fatalf("register natives: %v", err)
	}

	unit, err := eng.Compile(ctx, wasmgen.HostCallModule("env", "mul"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer eng.Unload(ctx, unit)

	inst, err := eng.Instantiate(ctx, unit, 16*1024, 16*1024)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer eng.Deinstantiate(ctx, inst)

	fn, ok := eng.Lookup(inst, "call_host")
	if !ok {
		t.Fatal("call_host not found")
	}

	ec, err := eng.NewExecContext(inst, 16*1024)
	if err != nil {
		t.Fatalf("exec context: %v", err)
	}
	defer eng.DestroyExecContext(ec)

	argv := []uint32{6, 7}
	if err := eng.Call(ctx, ec, fn, argv); err != nil {
		t.Fatalf("call: %v", err)
	}
	if argv[0] != 42 {
		t.Errorf("argv[0] = %d, want 42", argv[0])
	}
}
