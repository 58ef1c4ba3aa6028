package memref

// Reader is the emulator's memory-read callback: the only collaborator
// interface the memref graph depends on (spec §6). A short read — fewer
// bytes than requested — is authoritative: the engine treats the address
// as permanently invalid and never retries it.
type Reader interface {
	ReadMemory(address uint32, buf []byte) int
}

// Triple is the value/prior/changed state every memref (plain or
// modified) carries. changed is a single-frame latch: true only for the
// frame in which current != prior.
type Triple struct {
	Current uint32
	Prior   uint32
	Changed bool
}

// Update applies the refresh rule for one frame: if the decoded value is
// unchanged, only the changed latch clears; otherwise Prior captures the
// outgoing Current before it's overwritten.
func (t *Triple) Update(newValue uint32) {
	if newValue == t.Current {
		t.Changed = false
		return
	}
	t.Prior = t.Current
	t.Current = newValue
	t.Changed = true
}

// Memref is one observable memory cell. Two plain memrefs with identical
// (Address, Size) are guaranteed by the parser to be the same object
// (spec §3's deduplication contract) — the evaluator and modified-memref
// graph both rely on pointer identity, not value equality, to detect
// sharing.
type Memref struct {
	Address uint32
	Size    Size
	Triple

	// valid is cleared permanently the first time the reader returns a
	// short read for this address (spec §4.2 invalidation).
	valid bool
	// nonShared marks a memref that was split off to track a prior value
	// independently of the shared-size cell it would otherwise collapse
	// into (spec §4.2 "prior value tie-break").
	nonShared bool

	next Node
}

// Node is satisfied by both *Memref and *ModifiedMemref: the refresh list
// is a single linked chain mixing both kinds, walked in two passes.
type Node interface {
	isMemrefNode()
	nextNode() Node
	setNextNode(Node)
}

func (m *Memref) isMemrefNode()      {}
func (m *Memref) nextNode() Node     { return m.next }
func (m *Memref) setNextNode(n Node) { m.next = n }

// NewMemref constructs a plain memref in the Valid state. Graph.Alloc is
// the normal entry point; this is exported for tests and for callers that
// build memrefs outside the parser (e.g. progress deserialization).
func NewMemref(address uint32, size Size) *Memref {
	return &Memref{Address: address, Size: size, valid: true}
}

// Valid reports whether this memref is still readable. Once invalidated
// (a short read) it never becomes valid again for the life of the game.
func (m *Memref) Valid() bool { return m.valid }

// BaseAddress reports the real memory address this cell reads, letting an
// operand re-read it at a computed offset (AddAddress accumulation, spec
// §4.5 step 2). ok is always true for a plain memref.
func (m *Memref) BaseAddress() (uint32, bool) { return m.Address, true }

// refresh performs the plain-memref read-and-update for one frame. It is
// unexported: only the owning Graph drives refresh, in list order, during
// the first refresh pass.
func (m *Memref) refresh(r Reader) {
	if !m.valid {
		return
	}

	shared := m.Size.SharedSize()
	width := shared.ByteWidth()
	buf := make([]byte, width)
	n := r.ReadMemory(m.Address, buf)
	if n < width {
		m.valid = false
		return
	}

	raw := decodeLittleEndian(buf)
	masked := raw & shared.Mask()
	value := masked
	if shared != m.Size {
		value = masked & m.Size.Mask()
	}
	m.Triple.Update(value)
}

// RestoreValue overwrites this memref's current/prior/changed triple
// directly, without touching the reader, for loading a saved progress
// snapshot back into a freshly-parsed game (spec §4.7).
func (m *Memref) RestoreValue(current, prior uint32, changed bool) {
	m.Triple.Current = current
	m.Triple.Prior = prior
	m.Triple.Changed = changed
}

func decodeLittleEndian(buf []byte) uint32 {
	var v uint32
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint32(buf[i])
	}
	return v
}

// OperandView selects which member of a memref's value triple an operand
// observes.
type OperandView uint8

const (
	ViewAddress OperandView = iota // current value
	ViewDelta                     // prior frame's value (falls back to current if unchanged)
	ViewPrior                      // value before the last distinct value
)

// Value returns the requested view of this memref's triple, implementing
// the same three-way switch as rc_get_memref_value_value: Delta degrades
// to Current when the cell didn't change this frame (there is no "older"
// value to report), while Prior always reports the last distinct value
// regardless of whether this frame changed it.
func (m *Memref) Value(view OperandView) uint32 {
	switch view {
	case ViewDelta:
		if !m.Triple.Changed {
			return m.Triple.Current
		}
		return m.Triple.Prior
	case ViewPrior:
		return m.Triple.Prior
	default:
		return m.Triple.Current
	}
}
