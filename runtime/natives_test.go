package runtime

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/internal/wasmgen"
)

func mulNatives() []engine.NativeSymbol {
	return []engine.NativeSymbol{{
		Name: "mul",
		Fn: func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(uint32(stack[0]) * uint32(stack[1]))
		},
		Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
	}}
}

func TestNativesRegisteredBeforeBegin(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTestRuntime(t, 256*1024)

	if err := rt.RegisterNatives(ctx, "env", mulNatives()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := rt.Begin(ctx, 128*1024); err != nil {
		t.Fatalf("begin: %v", err)
	}

	mod := rt.NewModule()
	defer mod.Close(ctx)

	if err := mod.Load(ctx, wasmgen.HostCallModule("env", "mul"), 0, 0); err != nil {
		t.Fatalf("load: %v", err)
	}

	argv := []uint32{6, 7}
	if err := mod.CallFunction(ctx, "call_host", argv); err != nil {
		t.Fatalf("call: %v", err)
	}
	if argv[0] != 42 {
		t.Errorf("argv[0] = %d, want 42", argv[0])
	}
}

func TestNativesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTestRuntime(t, 256*1024)

	if err := rt.RegisterNatives(ctx, "env", mulNatives()); err != nil {
		t.Fatalf("register: %v", err)
	}

	for cycle := 0; cycle < 2; cycle++ {
		if err := rt.Begin(ctx, 128*1024); err != nil {
			t.Fatalf("cycle %d begin: %v", cycle, err)
		}

		mod := rt.NewModule()
		if err := mod.Load(ctx, wasmgen.HostCallModule("env", "mul"), 0, 0); err != nil {
			t.Fatalf("cycle %d load: %v", cycle, err)
		}

		argv := []uint32{3, 5}
		if err := mod.CallFunction(ctx, "call_host", argv); err != nil {
			t.Fatalf("cycle %d call: %v", cycle, err)
		}
		if argv[0] != 15 {
			t.Errorf("cycle %d argv[0] = %d, want 15", cycle, argv[0])
		}

		mod.Close(ctx)
		rt.End(ctx)
	}
}

func TestNativesOnLiveRuntime(t *testing.T) {
	ctx := context.Background()
	rt, _ := newTestRuntime(t, 256*1024)
	if err := rt.Begin(ctx, 128*1024); err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := rt.RegisterNatives(ctx, "env", mulNatives()); err != nil {
		t.Fatalf("register on live runtime: %v", err)
	}

	mod := rt.NewModule()
	defer mod.Close(ctx)

	if err := mod.Load(ctx, wasmgen.HostCallModule("env", "mul"), 0, 0); err != nil {
		t.Fatalf("load: %v", err)
	}
	argv := []uint32{9, 9}
	if err := mod.CallFunction(ctx, "call_host", argv); err != nil {
		t.Fatalf("call: %v", err)
	}
	if argv[0] != 81 {
		t.Errorf("argv[0] = %d, want 81", argv[0])
	}
}
