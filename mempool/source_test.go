package mempool

import "testing"

func TestArenaAccounting(t *testing.T) {
	a := NewArena(ClassInternal, 1024)

	buf, err := a.Allocate(256)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(buf) != 256 {
		t.Fatalf("len = %d, want 256", len(buf))
	}
	if a.InUse() != 256 {
		t.Errorf("in use = %d, want 256", a.InUse())
	}

	a.Free(buf)
	if a.InUse() != 0 {
		t.Errorf("in use after free = %d, want 0", a.InUse())
	}
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(ClassInternal, 100)

	if _, err := a.Allocate(101); err == nil {
		t.Fatal("expected error for over-capacity request")
	}
	if a.InUse() != 0 {
		t.Errorf("failed allocate retained %d bytes", a.InUse())
	}

	buf, err := a.Allocate(100)
	if err != nil {
		t.Fatalf("full-capacity allocate: %v", err)
	}
	if _, err := a.Allocate(1); err == nil {
		t.Error("expected error on exhausted arena")
	}
	a.Free(buf)
}

func TestArenaZeroSize(t *testing.T) {
	a := NewArena(ClassExternal, 100)
	if _, err := a.Allocate(0); err == nil {
		t.Error("expected error for zero-size request")
	}
}

func TestArenaFreeNil(t *testing.T) {
	a := NewArena(ClassExternal, 100)
	a.Free(nil) // must not panic or underflow
	if a.InUse() != 0 {
		t.Errorf("in use = %d", a.InUse())
	}
}

func TestClassString(t *testing.T) {
	if ClassExternal.String() != "external" || ClassInternal.String() != "internal" {
		t.Errorf("got %q, %q", ClassExternal, ClassInternal)
	}
}
