package expr

import (
	"testing"

	"github.com/northbridge-labs/cheevos/internal/arena"
	"github.com/northbridge-labs/cheevos/internal/memref"
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

func newTestParseState() (*ParseState, *memref.Graph) {
	graph := memref.NewGraph()
	ps := NewParseState(graph, arena.NewBuffer(), false)
	return ps, graph
}

func parseTrigger(t *testing.T, ps *ParseState, src string) *Trigger {
	t.Helper()
	trig, code := ps.ParseTriggerString(src)
	if code != OK {
		t.Fatalf("parse %q: %v", src, code)
	}
	trig.Activate()
	return trig
}

func TestTriggerSimpleThreshold(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "0xH0010>=10")
	r := newFakeReader()

	r.set(0x10, 5)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventNone {
		t.Fatalf("expected EventNone below threshold, got %v", ev)
	}

	r.set(0x10, 10)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected EventTriggered at threshold, got %v", ev)
	}
	if trig.State != StateTriggered {
		t.Fatalf("expected StateTriggered, got %v", trig.State)
	}

	// Triggered is terminal: further frames are a no-op until Activate.
	if ev := trig.Evaluate(&EvalContext{}); ev != EventNone {
		t.Fatalf("expected EventNone once triggered, got %v", ev)
	}
}

func TestTriggerRequiredHitsAccumulate(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "0xH0010=1.3.")
	r := newFakeReader()

	for i := 0; i < 2; i++ {
		r.set(0x10, 1)
		graph.Refresh(r)
		if ev := trig.Evaluate(&EvalContext{}); ev != EventNone {
			t.Fatalf("hit %d: expected not yet satisfied, got %v", i+1, ev)
		}
	}

	r.set(0x10, 1)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected trigger on third hit, got %v", ev)
	}
	if trig.Core.Conditions[0].CurrentHits != 3 {
		t.Fatalf("expected 3 accumulated hits, got %d", trig.Core.Conditions[0].CurrentHits)
	}
}

func TestTriggerResetIfClearsHits(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "R:0xH0011=1_0xH0010=1.3.")
	r := newFakeReader()

	r.set(0x10, 1)
	graph.Refresh(r)
	trig.Evaluate(&EvalContext{})
	if trig.Core.Conditions[1].CurrentHits != 1 {
		t.Fatalf("expected 1 accumulated hit before reset, got %d", trig.Core.Conditions[1].CurrentHits)
	}

	r.set(0x11, 1) // fires ResetIf
	r.set(0x10, 1)
	graph.Refresh(r)
	trig.Evaluate(&EvalContext{})
	if trig.Core.Conditions[1].CurrentHits != 0 {
		t.Fatalf("expected ResetIf to clear hit count, got %d", trig.Core.Conditions[1].CurrentHits)
	}
}

func TestTriggerPauseIfLocksHits(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "P:0xH0011=1_0xH0010=1.3.")
	r := newFakeReader()

	r.set(0x10, 1)
	graph.Refresh(r)
	trig.Evaluate(&EvalContext{})
	if trig.Core.Conditions[1].CurrentHits != 1 {
		t.Fatalf("expected 1 hit, got %d", trig.Core.Conditions[1].CurrentHits)
	}

	r.set(0x11, 1) // pause
	r.set(0x10, 1)
	graph.Refresh(r)
	trig.Evaluate(&EvalContext{})
	if trig.State != StatePaused {
		t.Fatalf("expected StatePaused, got %v", trig.State)
	}
	if trig.Core.Conditions[1].CurrentHits != 1 {
		t.Fatalf("expected PauseIf to lock the hit count at 1, got %d", trig.Core.Conditions[1].CurrentHits)
	}
}

func TestLeaderboardLifecycle(t *testing.T) {
	ps, graph := newTestParseState()
	lb, code := ps.ParseLeaderboard("STA:0xH0010=1::CAN:0xH0011=1::SUB:0xH0012=1::VAL:0xH0013::FOR:VALUE")
	if code != OK {
		t.Fatalf("parse leaderboard: %v", code)
	}
	lb.Start.Activate()
	r := newFakeReader()

	_, _, ev := lb.Evaluate(&EvalContext{})
	if ev != LboardEventNone {
		t.Fatalf("expected no event before start condition is met, got %v", ev)
	}

	r.set(0x10, 1)
	graph.Refresh(r)
	_, _, ev = lb.Evaluate(&EvalContext{})
	if ev != LboardEventStarted {
		t.Fatalf("expected LboardEventStarted, got %v", ev)
	}

	r.set(0x13, 42)
	graph.Refresh(r)
	value, _, ev := lb.Evaluate(&EvalContext{})
	if ev != LboardEventUpdated || value != 42 {
		t.Fatalf("expected updated value 42, got value=%d ev=%v", value, ev)
	}

	r.set(0x12, 1)
	graph.Refresh(r)
	_, _, ev = lb.Evaluate(&EvalContext{})
	if ev != LboardEventSubmitted {
		t.Fatalf("expected LboardEventSubmitted, got %v", ev)
	}
	if lb.Start.State != StateWaiting {
		t.Fatalf("expected Start to re-arm to Waiting after submission, got %v", lb.Start.State)
	}
}
