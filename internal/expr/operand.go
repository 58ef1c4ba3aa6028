package expr

import (
	"github.com/northbridge-labs/cheevos/internal/memref"
	"github.com/northbridge-labs/cheevos/internal/typedvalue"
)

// OperandKind tags which of the DSL's operand forms a value comes from
// (spec §3 "Operand").
type OperandKind uint8

const (
	OperandAddress OperandKind = iota
	OperandDelta
	OperandPrior
	OperandBCD
	OperandInverted
	OperandConst
	OperandFP
	OperandLua
	OperandRecall
)

// cell is satisfied by both *memref.Memref and *memref.ModifiedMemref (the
// latter via its embedded Memref), letting an Operand hold either without
// caring which.
type cell interface {
	Value(memref.OperandView) uint32
	Valid() bool
	BaseAddress() (uint32, bool)
}

// Operand is one leaf of an expression: either a memory reference viewed
// through one of the access modifiers, a constant, a Lua scriptlet
// reference, or a Recall of the enclosing expression's last Remember.
type Operand struct {
	Kind OperandKind
	Size memref.Size

	// memrefAccessType records which triple member a Recall operand
	// should read once resolved, mirroring rc_operand_t's
	// memref_access_type field.
	memrefAccessType OperandKind

	Ref cell

	ConstU32 uint32
	ConstF64 float64

	LuaName string
}

// setConst configures self as an unsigned 32-bit constant operand.
func (o *Operand) setConst(value uint32) {
	*o = Operand{Kind: OperandConst, Size: memref.Bits32, ConstU32: value}
}

// setFloatConst configures self as a floating point constant operand.
func (o *Operand) setFloatConst(value float64) {
	*o = Operand{Kind: OperandFP, Size: memref.Float, ConstF64: value}
}

// invalid reports whether this operand reads a memref that has been
// permanently invalidated by a short read (spec §4.2), used to decide
// whether the trigger/value/leaderboard referencing it must be disabled
// (spec §7 "short memory reads disable the affected artifacts exactly
// once").
func (o *Operand) invalid() bool {
	return o.IsMemref() && o.Ref != nil && !o.Ref.Valid()
}

// IsMemref reports whether this operand reads a memref rather than being a
// constant, Lua call, or (unresolved) recall.
func (o *Operand) IsMemref() bool {
	switch o.Kind {
	case OperandConst, OperandFP, OperandLua, OperandRecall:
		return false
	default:
		return true
	}
}

// IsFloat reports whether this operand yields a float-typed value.
func (o *Operand) IsFloat() bool {
	if o.Kind == OperandFP {
		return true
	}
	if !o.IsMemref() {
		return false
	}
	return o.Size.IsFloat()
}

// Equal implements the parser's operand-equality rule (spec §4.2
// "operands-equal uses deep compare on memrefs by pointer and on
// constants by value"), used to decide whether a new modified memref can
// share an existing one.
func (o *Operand) Equal(other *Operand) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case OperandConst:
		return o.ConstU32 == other.ConstU32
	case OperandFP:
		return o.ConstF64 == other.ConstF64
	case OperandRecall:
		return true
	default:
		return o.Size == other.Size && o.Ref == other.Ref
	}
}

// StructuralKey implements memref.Modifier for operands used as a modified
// memref's right-hand side.
func (o *Operand) StructuralKey() any {
	switch o.Kind {
	case OperandConst:
		return o.ConstU32
	case OperandFP:
		return o.ConstF64
	default:
		return o.Ref
	}
}

// Evaluate implements memref.Modifier: it is how a ModifiedMemref asks its
// operand modifier for a current typed value during the graph's second
// refresh pass.
func (o *Operand) Evaluate() typedvalue.Value {
	v, _ := o.eval(nil)
	return v
}

// EvalContext carries the small amount of mutable, cross-operand state one
// evaluation pass needs: a Lua callback and the most recent Remember
// value (for Recall operands), per spec §3's "Recall — refers to the most
// recent Remember in the same expression."
type EvalContext struct {
	Lua    LuaHook
	Peek   PeekFunc
	Recall typedvalue.Value
}

// LuaHook evaluates a named Lua scriptlet against the current memory
// image, returning the value the script produced. Implemented by
// internal/script's Engine.Hook; nil when no engine is wired, in which
// case Lua operands evaluate to zero (spec §3: "may be disabled by build
// flag; treated as opaque if absent").
type LuaHook func(name string, peek PeekFunc) uint32

// PeekFunc lets a Lua scriptlet read emulator memory directly, mirroring
// rc_peek_t.
type PeekFunc func(address uint32, numBytes uint32) uint32

// EvaluateIn evaluates this operand using ctx for Lua/Recall support.
func (o *Operand) EvaluateIn(ctx *EvalContext) typedvalue.Value {
	v, _ := o.eval(ctx)
	return v
}

func (o *Operand) eval(ctx *EvalContext) (typedvalue.Value, bool) {
	switch o.Kind {
	case OperandConst:
		return typedvalue.FromU32(o.ConstU32), true

	case OperandFP:
		return typedvalue.FromF32(o.ConstF64), true

	case OperandLua:
		if ctx != nil && ctx.Lua != nil {
			return typedvalue.FromU32(ctx.Lua(o.LuaName, ctx.Peek)), true
		}
		return typedvalue.FromU32(0), true

	case OperandRecall:
		if ctx != nil {
			return ctx.Recall, true
		}
		return typedvalue.FromU32(0), true
	}

	if o.Ref == nil {
		return typedvalue.FromU32(0), false
	}

	raw := o.Ref.Value(operandView(o.Kind))
	if o.Size.IsFloat() {
		return typedvalue.FromF32(memref.DecodeFloat(raw, o.Size)), true
	}

	raw = memref.Decode(raw, o.Size)
	raw = transformOperandValue(raw, o)
	return typedvalue.FromU32(raw), true
}

// readAt re-reads this operand as though its underlying memref sat at
// (its own declared address + offset), rather than its own address,
// implementing AddAddress's "rebind the next condition's lhs/rhs read to
// a new address" rule (spec §4.5 step 2; spec §8 scenario 4's indirect
// read). It mirrors ModifiedMemref's own indirect-read branch
// (internal/memref/modified.go), going through ctx.Peek instead of a
// Reader since an Operand doesn't hold one directly. Returns ok=false
// (falling back to a normal EvaluateIn) when the operand isn't a plain
// memref-backed reference or no peek function is available.
func (o *Operand) readAt(ctx *EvalContext, offset uint32) (typedvalue.Value, bool) {
	if !o.IsMemref() || o.Ref == nil || ctx == nil || ctx.Peek == nil {
		return typedvalue.Value{}, false
	}
	base, ok := o.Ref.BaseAddress()
	if !ok {
		return typedvalue.Value{}, false
	}

	addr := base + offset
	raw := ctx.Peek(addr, uint32(o.Size.ByteWidth()))
	if o.Size.IsFloat() {
		return typedvalue.FromF32(memref.DecodeFloat(raw, o.Size)), true
	}

	raw = memref.Decode(raw, o.Size)
	raw = transformOperandValue(raw, o)
	return typedvalue.FromU32(raw), true
}

func operandView(k OperandKind) memref.OperandView {
	switch k {
	case OperandDelta:
		return memref.ViewDelta
	case OperandPrior:
		return memref.ViewPrior
	default:
		return memref.ViewAddress
	}
}

// transformOperandValue applies the BCD and bitwise-invert operand-level
// transforms, both operating on the already size-decoded value (never
// applied inside the memref layer itself — spec §4.2).
func transformOperandValue(value uint32, o *Operand) uint32 {
	switch o.Kind {
	case OperandBCD:
		return bcdDecode(value, o.Size)
	case OperandInverted:
		return value ^ invertMask(o.Size)
	default:
		return value
	}
}

// invertMask returns the bitmask Inverted XORs against, sized to the
// already-decoded value's width rather than the size's raw bit position —
// e.g. a bit-field size decodes to 0 or 1, so it inverts against 0x01, not
// its original bit position's mask (matches rc_transform_operand_value's
// RC_OPERAND_INVERTED switch).
func invertMask(size memref.Size) uint32 {
	switch size {
	case memref.Low, memref.High:
		return 0x0f
	case memref.Bits8:
		return 0xff
	case memref.Bits16, memref.Bits16BE:
		return 0xffff
	case memref.Bits24, memref.Bits24BE:
		return 0xffffff
	case memref.Bits32, memref.Bits32BE, memref.Variable:
		return 0xffffffff
	default:
		return 0x01
	}
}

func bcdDecode(value uint32, size memref.Size) uint32 {
	digit := func(shift uint) uint32 { return (value >> shift) & 0x0f }
	switch size {
	case memref.Bits8:
		return digit(4)*10 + digit(0)
	case memref.Bits16, memref.Bits16BE:
		return digit(12)*1000 + digit(8)*100 + digit(4)*10 + digit(0)
	case memref.Bits24, memref.Bits24BE:
		return digit(20)*100000 + digit(16)*10000 + digit(12)*1000 +
			digit(8)*100 + digit(4)*10 + digit(0)
	case memref.Bits32, memref.Bits32BE, memref.Variable:
		return digit(28)*10000000 + digit(24)*1000000 + digit(20)*100000 +
			digit(16)*10000 + digit(12)*1000 + digit(8)*100 + digit(4)*10 + digit(0)
	default:
		return value
	}
}
