// Package console is a concrete memref.Reader backed by a real ARM64
// CPU core (github.com/unicorn-engine/unicorn), repurposed from the
// teacher's native-library emulator: instead of loading an unknown
// binary and reconstructing its C++ vtables, it maps one RAM region and
// steps a small program against it, giving the client runtime's
// do_frame loop something that actually executes between reads — the
// role spec §1 assigns to "the emulator's memory-read callback" (an
// explicit non-goal of the core itself, but this package is the default
// collaborator that implements it end to end for the demo CLI and tests).
package console

import (
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
	"golang.org/x/arch/arm64/arm64asm"

	"github.com/northbridge-labs/cheevos/internal/consoleinfo"
)

const (
	codeBase = 0x00010000
	codeSize = 0x00010000
)

// Console wraps one Unicorn ARM64 core mapped with a console's declared
// RAM region plus a small code page the caller can load a program into.
type Console struct {
	mu     uc.Unicorn
	region consoleinfo.Region
}

// New creates a Console whose RAM window matches the first declared
// region of the named console (spec §4.8's "console's declared
// memory-regions map" — internal/consoleinfo supplies the concrete
// table).
func New(id consoleinfo.ID) (*Console, error) {
	info, ok := consoleinfo.Lookup(id)
	if !ok || len(info.Regions) == 0 {
		return nil, fmt.Errorf("console: unknown or region-less console %d", id)
	}
	return newWithRegion(info.Regions[0])
}

func newWithRegion(region consoleinfo.Region) (*Console, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_ARM64, uc.MODE_ARM)
	if err != nil {
		return nil, fmt.Errorf("console: create unicorn: %w", err)
	}

	c := &Console{mu: mu, region: region}

	if err := mu.MemMap(codeBase, codeSize); err != nil {
		mu.Close()
		return nil, fmt.Errorf("console: map code region: %w", err)
	}

	ramSize := pageAlign(uint64(region.Size))
	if ramSize == 0 {
		ramSize = 0x1000
	}
	if err := mu.MemMap(uint64(region.Base), ramSize); err != nil {
		mu.Close()
		return nil, fmt.Errorf("console: map ram region %q: %w", region.Name, err)
	}

	return c, nil
}

func pageAlign(n uint64) uint64 {
	const page = 0x1000
	return (n + page - 1) &^ (page - 1)
}

// LoadProgram writes ARM64 machine code at the code base and positions
// the program counter there, ready for Step/Run.
func (c *Console) LoadProgram(code []byte) error {
	if err := c.mu.MemWrite(codeBase, code); err != nil {
		return fmt.Errorf("console: load program: %w", err)
	}
	return c.mu.RegWrite(uc.ARM64_REG_PC, codeBase)
}

// Step executes exactly one instruction's worth of code, its normal
// per-frame role in the demo CLI (one emulated CPU step per emulated
// frame, mirroring spec §1's "on every emulated frame").
func (c *Console) Step() error {
	pc, err := c.mu.RegRead(uc.ARM64_REG_PC)
	if err != nil {
		return fmt.Errorf("console: read pc: %w", err)
	}
	if err := c.mu.StartWithOptions(pc, codeBase+codeSize, &uc.UcOptions{Count: 1}); err != nil {
		return fmt.Errorf("console: step: %w", err)
	}
	return nil
}

// CurrentInstruction decodes the ARM64 instruction at the program
// counter's current position, for the demo CLI's debug display of what
// Step is about to execute (the teacher's cmd/galago disasm helper,
// repurposed here for a live single-instruction preview rather than a
// bulk trace).
func (c *Console) CurrentInstruction() string {
	pc, err := c.mu.RegRead(uc.ARM64_REG_PC)
	if err != nil {
		return "???"
	}
	code := make([]byte, 4)
	if err := c.mu.MemRead(pc, code); err != nil {
		return "???"
	}
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", uint32(code[0])|uint32(code[1])<<8|uint32(code[2])<<16|uint32(code[3])<<24)
	}
	return inst.String()
}

// WriteMemory pokes raw bytes into the console's mapped RAM, used by
// tests and the demo CLI to script memory changes a real game's logic
// would otherwise produce.
func (c *Console) WriteMemory(address uint32, data []byte) error {
	if err := c.mu.MemWrite(uint64(c.region.Base)+uint64(address), data); err != nil {
		return fmt.Errorf("console: write memory at 0x%x: %w", address, err)
	}
	return nil
}

// ReadMemory implements memref.Reader: address is relative to the
// console's RAM region, and a short read (fewer bytes than requested, or
// an address outside the mapped window) is reported as 0 bytes read —
// the permanent-invalidation signal spec §4.2 describes.
func (c *Console) ReadMemory(address uint32, buf []byte) int {
	if address+uint32(len(buf)) > c.region.Base+c.region.Size {
		return 0
	}
	if err := c.mu.MemRead(uint64(c.region.Base)+uint64(address), buf); err != nil {
		return 0
	}
	return len(buf)
}

// Close releases the underlying Unicorn core.
func (c *Console) Close() error {
	return c.mu.Close()
}
