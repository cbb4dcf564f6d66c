// Package wasmgen emits minimal binary WebAssembly modules for tests.
// It covers just enough of the binary format (types, imports,
// functions, exports, code) to produce single-purpose fixtures without
// checking binary blobs into the tree.
package wasmgen

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

// Opcodes used by fixture bodies.
const (
	OpUnreachable byte = 0x00
	OpCall        byte = 0x10
	OpDrop        byte = 0x1a
	OpLocalGet    byte = 0x20
	OpI32Const    byte = 0x41
	OpI32Add      byte = 0x6a
	OpI32Sub      byte = 0x6b
	OpI32Mul      byte = 0x6c
	OpEnd         byte = 0x0b
)

// Func is one defined, exported function. Body must include its
// terminating OpEnd.
type Func struct {
	Name    string
	Params  []byte
	Results []byte
	Body    []byte
}

// Import is one imported function. Imported functions occupy the low
// function indices, in declaration order, before any defined function.
type Import struct {
	Module  string
	Name    string
	Params  []byte
	Results []byte
}

// Build assembles a module from imports and defined functions.
func Build(imports []Import, funcs ...Func) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Type section: one entry per import, then one per function.
	var types []byte
	types = appendULEB(types, uint32(len(imports)+len(funcs)))
	for _, imp := range imports {
		types = appendFuncType(types, imp.Params, imp.Results)
	}
	for _, fn := range funcs {
		types = appendFuncType(types, fn.Params, fn.Results)
	}
	out = appendSection(out, 0x01, types)

	if len(imports) > 0 {
		var imps []byte
		imps = appendULEB(imps, uint32(len(imports)))
		for i, imp := range imports {
			imps = appendName(imps, imp.Module)
			imps = appendName(imps, imp.Name)
			imps = append(imps, 0x00) // func kind
			imps = appendULEB(imps, uint32(i))
		}
		out = appendSection(out, 0x02, imps)
	}

	var fsec []byte
	fsec = appendULEB(fsec, uint32(len(funcs)))
	for i := range funcs {
		fsec = appendULEB(fsec, uint32(len(imports)+i))
	}
	out = appendSection(out, 0x03, fsec)

	var exps []byte
	exps = appendULEB(exps, uint32(len(funcs)))
	for i, fn := range funcs {
		exps = appendName(exps, fn.Name)
		exps = append(exps, 0x00) // func kind
		exps = appendULEB(exps, uint32(len(imports)+i))
	}
	out = appendSection(out, 0x07, exps)

	var code []byte
	code = appendULEB(code, uint32(len(funcs)))
	for _, fn := range funcs {
		body := append([]byte{0x00}, fn.Body...) // zero locals
		code = appendULEB(code, uint32(len(body)))
		code = append(code, body...)
	}
	out = appendSection(out, 0x0a, code)

	return out
}

func appendFuncType(dst []byte, params, results []byte) []byte {
	dst = append(dst, 0x60)
	dst = appendULEB(dst, uint32(len(params)))
	dst = append(dst, params...)
	dst = appendULEB(dst, uint32(len(results)))
	dst = append(dst, results...)
	return dst
}

func appendSection(dst []byte, id byte, contents []byte) []byte {
	dst = append(dst, id)
	dst = appendULEB(dst, uint32(len(contents)))
	return append(dst, contents...)
}

func appendName(dst []byte, s string) []byte {
	dst = appendULEB(dst, uint32(len(s)))
	return append(dst, s...)
}

func appendULEB(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

func appendSLEB(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// AddModule exports add(a, b) -> a+b.
func AddModule() []byte {
	return Build(nil, Func{
		Name:    "add",
		Params:  []byte{I32, I32},
		Results: []byte{I32},
		Body:    []byte{OpLocalGet, 0, OpLocalGet, 1, OpI32Add, OpEnd},
	})
}

// ConstModule exports name() -> v.
func ConstModule(name string, v int32) []byte {
	body := []byte{OpI32Const}
	body = appendSLEB(body, v)
	body = append(body, OpEnd)
	return Build(nil, Func{
		Name:    name,
		Results: []byte{I32},
		Body:    body,
	})
}

// TrapModule exports boom() which hits an unreachable instruction.
func TrapModule() []byte {
	return Build(nil, Func{
		Name: "boom",
		Body: []byte{OpUnreachable, OpEnd},
	})
}

// HostCallModule imports module.name as (i32, i32) -> i32 and exports
// call_host(a, b) forwarding to it.
func HostCallModule(module, name string) []byte {
	return Build(
		[]Import{{
			Module:  module,
			Name:    name,
			Params:  []byte{I32, I32},
			Results: []byte{I32},
		}},
		Func{
			Name:    "call_host",
			Params:  []byte{I32, I32},
			Results: []byte{I32},
			Body:    []byte{OpLocalGet, 0, OpLocalGet, 1, OpCall, 0, OpEnd},
		},
	)
}

// BadMagic is a byte sequence with an invalid header.
func BadMagic() []byte {
	return []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x00, 0x00, 0x00}
}
