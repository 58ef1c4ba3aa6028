package memref

import "github.com/northbridge-labs/cheevos/internal/typedvalue"

// ModifierOp names how a modified memref's value is derived from its
// parent. IndirectRead is handled specially: the modifier supplies an
// offset added to the parent's value to form a new address, which is then
// itself read at the modified memref's own Size (spec §3, "Modified
// memref").
type ModifierOp uint8

const (
	ModAdd ModifierOp = iota
	ModSub
	ModMul
	ModDiv
	ModAnd
	ModXor
	ModMod
	ModIndirectRead
)

func (op ModifierOp) typedOp() typedvalue.Op {
	switch op {
	case ModSub:
		return typedvalue.OpSub
	case ModMul:
		return typedvalue.OpMul
	case ModDiv:
		return typedvalue.OpDiv
	case ModAnd:
		return typedvalue.OpAnd
	case ModXor:
		return typedvalue.OpXor
	case ModMod:
		return typedvalue.OpMod
	default:
		return typedvalue.OpAdd
	}
}

// Modifier supplies the right-hand operand of a modified memref. It is a
// narrow view onto the real operand-evaluation machinery in package expr
// (which depends on memref and therefore cannot be depended upon here);
// the parser wires a concrete implementation in at compile time.
type Modifier interface {
	// Evaluate returns the modifier's current typed value.
	Evaluate() typedvalue.Value
	// StructuralKey identifies the modifier for allocation-time
	// deduplication: two modifiers are the "same" modifier iff their keys
	// are equal. Constant operands key on their value; memref-backed
	// operands key on the memref's pointer identity so that structural
	// equality matches the original engine's "operands-equal uses deep
	// compare on memrefs by pointer and on constants by value" rule.
	StructuralKey() any
}

// ParentView selects which triple member of the parent feeds a modified
// memref, mirroring OperandView but kept distinct because a modified
// memref's parent_type is stored at allocation time, not re-evaluated per
// operand.
type ParentView = OperandView

// ModifiedMemref is a synthetic cell whose value derives from a parent
// memref (or another modified memref) plus a Modifier, combined via one
// arithmetic/indirect operator. It carries its own value triple and is
// refreshed in dependency order during the graph's second refresh pass.
type ModifiedMemref struct {
	Memref // embeds the triple and Size; Address is left zero (dedup
	// goes through StructuralKey) — it plays no role in evaluation.

	Parent     *Memref
	ParentView ParentView
	Op         ModifierOp
	Modifier   Modifier

	next Node
}

func (m *ModifiedMemref) isMemrefNode()      {}
func (m *ModifiedMemref) nextNode() Node     { return m.next }
func (m *ModifiedMemref) setNextNode(n Node) { m.next = n }

// BaseAddress reports false: the embedded Memref's Address field is left
// zero, not a real read address, so AddAddress re-basing (which needs an actual
// address to add an offset to) does not apply to a modified memref.
func (m *ModifiedMemref) BaseAddress() (uint32, bool) { return 0, false }

// refresh recomputes this modified memref's value for the current frame.
// The parent (and, transitively, anything the modifier reads) must
// already have been refreshed this frame — the graph guarantees this by
// walking modified memrefs in construction order, which equals dependency
// order because a parent is always allocated before a child references it
// (spec §4.2).
func (m *ModifiedMemref) refresh(r Reader) {
	parentValue := typedvalue.FromU32(m.Parent.Value(m.ParentView))
	modValue := m.Modifier.Evaluate()

	if m.Op == ModIndirectRead {
		sum := typedvalue.Combine(parentValue, modValue, typedvalue.OpAdd)
		addr := sum.AsU32()

		width := m.Size.ByteWidth()
		buf := make([]byte, width)
		n := r.ReadMemory(addr, buf)
		if n < width {
			m.valid = false
			return
		}
		raw := decodeLittleEndian(buf)
		// Decode leaves float-family sizes as the raw bits (it has no
		// float case of its own); the triple always stores raw bits for
		// floats, decoded to a numeric value only at operand-evaluation
		// time via DecodeFloat.
		m.Triple.Update(Decode(raw, m.Size))
		return
	}

	combined := typedvalue.Combine(parentValue, modValue, m.Op.typedOp())
	m.Triple.Update(combined.AsU32())
}
