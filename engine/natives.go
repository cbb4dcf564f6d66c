package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// NativeSymbol maps one import name to a raw host handler and its core
// value-type signature. The adapter passes symbols through to the
// engine verbatim; it neither defines nor validates entries.
type NativeSymbol struct {
	Name    string
	Fn      api.GoModuleFunc
	Params  []api.ValueType
	Results []api.ValueType
}

// RegisterNatives instantiates a host module exposing the given symbols
// under namespace. Modules compiled afterwards resolve their imports
// against it. A namespace can only be registered once per engine.
func (e *WazeroEngine) RegisterNatives(ctx context.Context, namespace string, syms []NativeSymbol) error {
	if namespace == "" {
		return fmt.Errorf("engine: native namespace cannot be empty")
	}
	if len(syms) == 0 {
		return fmt.Errorf("engine: no native symbols for namespace %q", namespace)
	}

	builder := e.runtime.NewHostModuleBuilder(namespace)
	for _, s := range syms {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(s.Fn, s.Params, s.Results).
			Export(s.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("register natives %q: %w", namespace, err)
	}

	Logger().Debug("natives registered",
		zap.String("namespace", namespace),
		zap.Int("symbols", len(syms)))
	return nil
}
