package memref

import "testing"

type fakeReader struct {
	mem map[uint32]byte
	max uint32
}

func newFakeReader(size uint32) *fakeReader {
	return &fakeReader{mem: make(map[uint32]byte), max: size}
}

func (f *fakeReader) set(addr uint32, v byte) { f.mem[addr] = v }

func (f *fakeReader) ReadMemory(address uint32, buf []byte) int {
	n := 0
	for i := range buf {
		a := address + uint32(i)
		if a >= f.max {
			break
		}
		buf[i] = f.mem[a]
		n++
	}
	return n
}

func TestAllocDeduplicatesByAddressAndSize(t *testing.T) {
	g := NewGraph()
	a := g.Alloc(0x10, Bits8)
	b := g.Alloc(0x10, Bits8)
	if a != b {
		t.Fatal("expected same memref for identical (address, size)")
	}
	c := g.Alloc(0x10, Bits16)
	if a == c {
		t.Fatal("different sizes must not share a memref")
	}
}

func TestRefreshChangedLatch(t *testing.T) {
	r := newFakeReader(0x100)
	g := NewGraph()
	m := g.Alloc(0x10, Bits8)

	r.set(0x10, 1)
	g.Refresh(r)
	if !m.Changed || m.Current != 1 {
		t.Fatalf("expected change to 1, got current=%d changed=%v", m.Current, m.Changed)
	}

	g.Refresh(r)
	if m.Changed {
		t.Fatal("changed must latch false when value is stable")
	}

	r.set(0x10, 2)
	g.Refresh(r)
	if !m.Changed || m.Prior != 1 || m.Current != 2 {
		t.Fatalf("expected prior=1 current=2, got prior=%d current=%d", m.Prior, m.Current)
	}
}

func TestShortReadInvalidatesOnce(t *testing.T) {
	r := newFakeReader(0x10) // memory only goes up to (not including) 0x10
	g := NewGraph()
	m := g.Alloc(0x20, Bits8)

	invalid := g.Refresh(r)
	if m.Valid() {
		t.Fatal("expected memref to be invalidated by short read")
	}
	if len(invalid) != 1 || invalid[0] != 0x20 {
		t.Fatalf("expected invalidation list [0x20], got %v", invalid)
	}

	invalid = g.Refresh(r)
	if len(invalid) != 0 {
		t.Fatal("invalidation must only be reported once per address")
	}
}

func TestDeltaFallsBackToCurrentWhenUnchanged(t *testing.T) {
	r := newFakeReader(0x100)
	g := NewGraph()
	m := g.Alloc(0x10, Bits8)

	r.set(0x10, 5)
	g.Refresh(r) // current=5, changed=true
	g.Refresh(r) // stable, changed=false

	if m.Value(ViewDelta) != 5 {
		t.Fatalf("delta should fall back to current value 5, got %d", m.Value(ViewDelta))
	}
}
