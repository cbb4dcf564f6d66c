package wasmgen

import (
	"bytes"
	"testing"
)

func TestHeader(t *testing.T) {
	mod := AddModule()
	if !bytes.HasPrefix(mod, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("bad header: % x", mod[:8])
	}
}

func TestULEB(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		if got := appendULEB(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("uleb(%d) = % x, want % x", tt.v, got, tt.want)
		}
	}
}

func TestSLEB(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{7, []byte{0x07}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
	}
	for _, tt := range tests {
		if got := appendSLEB(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("sleb(%d) = % x, want % x", tt.v, got, tt.want)
		}
	}
}

func TestBadMagicIsBad(t *testing.T) {
	if bytes.HasPrefix(BadMagic(), []byte{0x00, 0x61, 0x73, 0x6d}) {
		t.Fatal("BadMagic carries a valid header")
	}
}

// Structural validity of generated modules is covered by the engine
// tests, which compile every fixture through the real runtime.
func TestBuildDeterministic(t *testing.T) {
	if !bytes.Equal(AddModule(), AddModule()) {
		t.Fatal("generator not deterministic")
	}
}
