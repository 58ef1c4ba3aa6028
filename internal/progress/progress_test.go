package progress

import (
	"testing"

	"github.com/northbridge-labs/cheevos/internal/arena"
	"github.com/northbridge-labs/cheevos/internal/expr"
	"github.com/northbridge-labs/cheevos/internal/memref"
	"github.com/northbridge-labs/cheevos/internal/runtime"
)

type fakeReader struct {
	mem map[uint32]byte
}

func newFakeReader() *fakeReader { return &fakeReader{mem: make(map[uint32]byte)} }

func (f *fakeReader) set(addr uint32, v byte) { f.mem[addr] = v }

func (f *fakeReader) ReadMemory(address uint32, buf []byte) int {
	for i := range buf {
		buf[i] = f.mem[address+uint32(i)]
	}
	return len(buf)
}

func buildGame(t *testing.T) (*runtime.Game, *fakeReader) {
	t.Helper()
	buf := arena.NewBuffer()
	graph := memref.NewGraph()
	ps := expr.NewParseState(graph, buf, false)

	trig, code := ps.ParseTriggerString("T:0xH0010=1.3._0xH0011=1")
	if code != expr.OK {
		t.Fatalf("parse trigger: %v", code)
	}

	g := runtime.NewGame(1, buf, graph)
	g.AddAchievement(&runtime.Achievement{ID: 42, Trigger: trig})

	return g, newFakeReader()
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	g, r := buildGame(t)

	r.set(0x10, 1)
	r.set(0x11, 1)
	g.DoFrame(r) // advances cond1's hit counter to 1 of 3, primes the set

	a, ok := g.Achievement(42)
	if !ok {
		t.Fatal("achievement 42 not found")
	}
	if a.Trigger.Core.Conditions[0].CurrentHits != 1 {
		t.Fatalf("expected 1 hit accumulated, got %d", a.Trigger.Core.Conditions[0].CurrentHits)
	}

	snap := Serialize(g)

	// Simulate a fresh load: rebuild the same game from scratch, losing
	// all accumulated hit state and memref values.
	g2, _ := buildGame(t)
	a2, _ := g2.Achievement(42)
	if a2.Trigger.Core.Conditions[0].CurrentHits != 0 {
		t.Fatal("fresh game must start with no accumulated hits")
	}

	if err := Deserialize(g2, snap); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if a2.Trigger.Core.Conditions[0].CurrentHits != 1 {
		t.Fatalf("expected restored hit count 1, got %d", a2.Trigger.Core.Conditions[0].CurrentHits)
	}
	if a2.Trigger.State != expr.StatePrimed {
		t.Fatalf("expected restored state primed, got %v", a2.Trigger.State)
	}
}

func TestDeserializeRejectsCorruptDigest(t *testing.T) {
	g, r := buildGame(t)
	r.set(0x10, 1)
	r.set(0x11, 1)
	g.DoFrame(r)

	snap := Serialize(g)
	snap[len(snap)-1] ^= 0xFF // flip a digest byte

	g2, _ := buildGame(t)
	if err := Deserialize(g2, snap); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestDeserializeRejectsBadMarker(t *testing.T) {
	g2, _ := buildGame(t)
	if err := Deserialize(g2, []byte{0, 0, 0, 0, 0, 0, 0, 0}); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt for bad marker, got %v", err)
	}
}

func TestSkipsTriggeredAchievements(t *testing.T) {
	g, r := buildGame(t)
	r.set(0x10, 1)
	r.set(0x11, 1)
	g.DoFrame(r)
	g.DoFrame(r)
	g.DoFrame(r) // three hits on cond1 -> satisfied -> triggered

	a, _ := g.Achievement(42)
	if a.Trigger.State != expr.StateTriggered {
		t.Fatalf("expected triggered, got %v", a.Trigger.State)
	}

	snap := Serialize(g)

	g2, _ := buildGame(t)
	if err := Deserialize(g2, snap); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	a2, _ := g2.Achievement(42)
	if a2.Trigger.State != expr.StateWaiting {
		t.Fatalf("a triggered achievement must not be restored, want waiting, got %v", a2.Trigger.State)
	}
}
