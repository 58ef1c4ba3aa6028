package console

import (
	"testing"

	"github.com/northbridge-labs/cheevos/internal/consoleinfo"
)

func TestNewMapsDeclaredRegion(t *testing.T) {
	c, err := New(consoleinfo.GameBoy)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.WriteMemory(0x10, []byte{0x2a}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}

	buf := make([]byte, 1)
	if n := c.ReadMemory(0x10, buf); n != 1 {
		t.Fatalf("ReadMemory returned %d bytes, want 1", n)
	}
	if buf[0] != 0x2a {
		t.Fatalf("ReadMemory = 0x%x, want 0x2a", buf[0])
	}
}

func TestReadMemoryShortReadBeyondRegion(t *testing.T) {
	c, err := New(consoleinfo.GameBoy)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	info, ok := consoleinfo.Lookup(consoleinfo.GameBoy)
	if !ok {
		t.Fatal("expected GameBoy to be a known console")
	}
	region := info.Regions[0]

	buf := make([]byte, 4)
	if n := c.ReadMemory(region.Size, buf); n != 0 {
		t.Fatalf("ReadMemory at/past the region end returned %d bytes, want 0 (short read)", n)
	}
}

func TestCurrentInstructionDecodesLoadedNop(t *testing.T) {
	c, err := New(consoleinfo.GameBoyAdvance)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	nop := []byte{0x1f, 0x20, 0x03, 0xd5}
	if err := c.LoadProgram(nop); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if got := c.CurrentInstruction(); got != "nop" {
		t.Fatalf("CurrentInstruction() = %q, want %q", got, "nop")
	}
}

func TestWriteThenOverwriteMemory(t *testing.T) {
	c, err := New(consoleinfo.NES)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.WriteMemory(0x20, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}
	if err := c.WriteMemory(0x21, []byte{0xff}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}

	buf := make([]byte, 3)
	if n := c.ReadMemory(0x20, buf); n != 3 {
		t.Fatalf("ReadMemory returned %d bytes, want 3", n)
	}
	want := []byte{0x01, 0xff, 0x03}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("ReadMemory[%d] = 0x%x, want 0x%x", i, buf[i], want[i])
		}
	}
}
