package expr

import "testing"

// TestOperandBitFields exercises the Bit0..Bit7 DSL tags ('M' through 'T'),
// which before the decode fix returned the shared byte's masked-but-
// unshifted bit position instead of a 0/1 boolean (spec §6's bit-tag row).
func TestOperandBitFields(t *testing.T) {
	tags := []byte{'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T'}

	for bit, tag := range tags {
		for _, set := range []bool{false, true} {
			ps, graph := newTestParseState()
			src := string([]byte{'0', 'x', tag, '0', '0', '1', '0'}) + "=1"
			trig := parseTrigger(t, ps, src)

			r := newFakeReader()
			if set {
				r.set(0x10, 1<<uint(bit))
			}
			graph.Refresh(r)

			ev := trig.Evaluate(&EvalContext{})
			want := EventNone
			if set {
				want = EventTriggered
			}
			if ev != want {
				t.Fatalf("bit %d tag %c set=%v: expected %v, got %v", bit, tag, set, want, ev)
			}
		}
	}
}

// TestOperandNibbles exercises the Low ('L') and High ('U') nibble tags
// against a byte whose two nibbles differ, so a fix that only decoded one
// correctly would still be caught.
func TestOperandNibbles(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "0xL0010=5")
	r := newFakeReader()
	r.set(0x10, 0x35)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected low nibble 5 to match, got %v", ev)
	}

	ps2, graph2 := newTestParseState()
	trig2 := parseTrigger(t, ps2, "0xU0010=3")
	r2 := newFakeReader()
	r2.set(0x10, 0x35)
	graph2.Refresh(r2)
	if ev := trig2.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected high nibble 3 to match, got %v", ev)
	}
}

// TestOperandBitCount exercises the 'K' (BitCount) tag.
func TestOperandBitCount(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "0xK0010=4")
	r := newFakeReader()
	r.set(0x10, 0x0f)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected bit count 4 for 0x0f, got %v", ev)
	}

	ps2, graph2 := newTestParseState()
	trig2 := parseTrigger(t, ps2, "0xK0010=8")
	r2 := newFakeReader()
	r2.set(0x10, 0xff)
	graph2.Refresh(r2)
	if ev := trig2.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected bit count 8 for 0xff, got %v", ev)
	}
}

// TestOperandBigEndianWidths exercises the 16/24/32-bit big-endian tags
// ('I'/'J'/'G'), confirming the byte swap is applied, not skipped.
func TestOperandBigEndianWidths(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "0xI0010=4660") // 0x1234
	r := newFakeReader()
	r.set(0x10, 0x12)
	r.set(0x11, 0x34)
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected 16-bit BE swap to yield 0x1234, got %v", ev)
	}

	ps2, graph2 := newTestParseState()
	trig2 := parseTrigger(t, ps2, "0xJ0010=66051") // 0x010203
	r2 := newFakeReader()
	r2.set(0x10, 0x01)
	r2.set(0x11, 0x02)
	r2.set(0x12, 0x03)
	graph2.Refresh(r2)
	if ev := trig2.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected 24-bit BE swap to yield 0x010203, got %v", ev)
	}

	ps3, graph3 := newTestParseState()
	trig3 := parseTrigger(t, ps3, "0xG0010=16909060") // 0x01020304
	r3 := newFakeReader()
	r3.set(0x10, 0x01)
	r3.set(0x11, 0x02)
	r3.set(0x12, 0x03)
	r3.set(0x13, 0x04)
	graph3.Refresh(r3)
	if ev := trig3.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected 32-bit BE swap to yield 0x01020304, got %v", ev)
	}
}

// TestOperandInvertedBitField exercises the '~' modifier on a bit-field
// size: inversion must flip the already-extracted 0/1 value, not XOR the
// bit's original position mask against the raw byte.
func TestOperandInvertedBitField(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "~0xN0010=0")
	r := newFakeReader()
	r.set(0x10, 0x02) // bit 1 set
	graph.Refresh(r)
	if ev := trig.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected inverted set bit to read 0, got %v", ev)
	}

	ps2, graph2 := newTestParseState()
	trig2 := parseTrigger(t, ps2, "~0xN0010=1")
	r2 := newFakeReader()
	r2.set(0x10, 0x00) // bit 1 clear
	graph2.Refresh(r2)
	if ev := trig2.Evaluate(&EvalContext{}); ev != EventTriggered {
		t.Fatalf("expected inverted clear bit to read 1, got %v", ev)
	}
}

// TestAddAddressRepointsRead exercises the spec §8 scenario 4 indirection
// chain: I:0xH0100 reads an offset byte, and the following condition's
// operand must be re-read at (its own address + that offset), not have the
// offset added to its already-evaluated value.
func TestAddAddressRepointsRead(t *testing.T) {
	ps, graph := newTestParseState()
	trig := parseTrigger(t, ps, "I:0xH0100_0xH00=7")

	r := newFakeReader()
	r.set(0x100, 4)
	r.set(0x04, 7)
	graph.Refresh(r)

	ctx := &EvalContext{Peek: func(address uint32, numBytes uint32) uint32 {
		buf := make([]byte, numBytes)
		r.ReadMemory(address, buf)
		var v uint32
		for i := len(buf) - 1; i >= 0; i-- {
			v = v<<8 | uint32(buf[i])
		}
		return v
	}}

	if ev := trig.Evaluate(ctx); ev != EventTriggered {
		t.Fatalf("expected AddAddress indirection to find 7 at 0x00+4, got %v", ev)
	}
}

// TestValueMeasuredZeroVsUnsatisfied exercises Value.Evaluate's (value, ok)
// pair: a satisfied set whose Measured operand is legitimately zero must
// report ok=true, distinct from an unsatisfied set reporting ok=false.
func TestValueMeasuredZeroVsUnsatisfied(t *testing.T) {
	ps, graph := newTestParseState()
	v, code := ps.ParseValue(newCursor("M:0xH0010=0"))
	if code != OK {
		t.Fatalf("parse value: %v", code)
	}
	r := newFakeReader()
	r.set(0x10, 0)
	graph.Refresh(r)

	result, ok := v.Evaluate(&EvalContext{})
	if !ok || result != 0 {
		t.Fatalf("expected measured zero (0, true), got (%d, %v)", result, ok)
	}

	ps2, graph2 := newTestParseState()
	v2, code := ps2.ParseValue(newCursor("M:0xH0010=5"))
	if code != OK {
		t.Fatalf("parse value: %v", code)
	}
	r2 := newFakeReader()
	r2.set(0x10, 0)
	graph2.Refresh(r2)

	result2, ok2 := v2.Evaluate(&EvalContext{})
	if ok2 || result2 != 0 {
		t.Fatalf("expected unsatisfied set to report (0, false), got (%d, %v)", result2, ok2)
	}
}
