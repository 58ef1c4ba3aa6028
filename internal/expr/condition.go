package expr

import "github.com/northbridge-labs/cheevos/internal/typedvalue"

// Flag names a condition's role within its set (spec §3 "Condition").
type Flag uint8

const (
	FlagStandard Flag = iota
	FlagPauseIf
	FlagResetIf
	FlagResetNextIf
	FlagAddHits
	FlagSubHits
	FlagAddSource
	FlagSubSource
	FlagAddAddress
	FlagAndNext
	FlagOrNext
	FlagMeasured
	FlagMeasuredPercent
	FlagMeasuredIf
	FlagTrigger
	FlagRemember
)

// flagPrefixes maps the DSL's single-letter condition prefix to its
// Flag. Grounded on the classic RetroAchievements DSL convention:
// spec §6's letter table lists 13 of these 15 prefixes directly (R P A B
// C N O M G Q T K Z); SubHits ('D') and AddAddress ('I') are carried over
// from the wider convention since the spec's own data model (§3) names
// both flags without giving them letters.
var flagPrefixes = map[string]Flag{
	"R": FlagResetIf,
	"P": FlagPauseIf,
	"A": FlagAddSource,
	"B": FlagSubSource,
	"C": FlagAddHits,
	"D": FlagSubHits,
	"N": FlagAndNext,
	"O": FlagOrNext,
	"M": FlagMeasured,
	"G": FlagMeasuredPercent,
	"Q": FlagMeasuredIf,
	"T": FlagTrigger,
	"K": FlagRemember,
	"Z": FlagResetNextIf,
	"I": FlagAddAddress,
}

// isAccumulatorFlag reports whether a flag contributes to pending
// accumulator state instead of producing its own hit/predicate (spec
// §4.5 step 3).
func (f Flag) isAccumulatorFlag() bool {
	switch f {
	case FlagAddSource, FlagSubSource, FlagAddAddress, FlagAndNext, FlagOrNext:
		return true
	default:
		return false
	}
}

// Compare names a condition's comparison operator. There is no arithmetic
// "mul" form: parseCompareOp reads '*' as CompareEqual, and AddSource,
// SubSource and AddAddress conditions ignore both their comparison and
// their right operand, so a multiplier written after '*' has no effect.
type Compare uint8

const (
	CompareNone Compare = iota
	CompareEqual
	CompareNotEqual
	CompareLessThan
	CompareLessThanOrEqual
	CompareGreaterThan
	CompareGreaterThanOrEqual
)

func (c Compare) typed() typedvalue.Compare {
	switch c {
	case CompareNotEqual:
		return typedvalue.CompareNotEqual
	case CompareLessThan:
		return typedvalue.CompareLessThan
	case CompareLessThanOrEqual:
		return typedvalue.CompareLessThanOrEqual
	case CompareGreaterThan:
		return typedvalue.CompareGreaterThan
	case CompareGreaterThanOrEqual:
		return typedvalue.CompareGreaterThanOrEqual
	default:
		return typedvalue.CompareEqual
	}
}

// Condition is one row of a condition set (spec §3).
type Condition struct {
	Flag  Flag
	LHS   *Operand
	Op    Compare
	RHS   *Operand
	RequiredHits uint32

	CurrentHits uint32
	IsTrue      bool

	// measuredValue caches this condition's contribution
	// when it carries Measured/MeasuredPercent, read back by the owning
	// Trigger after a set evaluates.
	measuredValue uint32
}

// accumState is the running accumulator state carried left-to-right
// across one condition set's evaluation pass (spec §4.5 steps 2-4).
type accumState struct {
	addSource typedvalue.Value
	hasSource bool

	addAddress uint32
	hasAddress bool

	addHits int64
	andNext bool
	hasAnd  bool
	orNext  bool
	hasOr   bool
}

func newAccumState() accumState {
	return accumState{addSource: typedvalue.FromU32(0)}
}

// evalStep evaluates this condition for the current frame given the
// accumulator state built up by preceding conditions in the same set, per
// the ten-step procedure in spec §4.5. It returns whether this condition
// contributed to resetting the whole trigger (ResetIf) and whether it
// requests a next-condition-only hit reset (ResetNextIf).
func (cond *Condition) evalStep(ctx *EvalContext, acc *accumState) (resetTrigger, resetNext bool) {
	lhs := resolveOperand(cond.LHS, ctx, acc)
	if acc.hasSource && cond.Flag != FlagAddSource && cond.Flag != FlagSubSource {
		lhs = typedvalue.Combine(acc.addSource, lhs, typedvalue.OpAdd)
		acc.addSource = typedvalue.FromU32(0)
		acc.hasSource = false
	}

	if cond.Flag == FlagRemember {
		ctx.Recall = lhs
	}

	if cond.Flag.isAccumulatorFlag() {
		switch cond.Flag {
		case FlagAddSource:
			acc.addSource = addOrInit(acc, lhs, typedvalue.OpAdd)
			acc.hasSource = true
		case FlagSubSource:
			acc.addSource = addOrInit(acc, lhs, typedvalue.OpSub)
			acc.hasSource = true
		case FlagAddAddress:
			acc.addAddress = lhs.AsU32()
			acc.hasAddress = true
		case FlagAndNext:
			acc.andNext = cond.predicate(lhs, ctx, acc)
			acc.hasAnd = true
		case FlagOrNext:
			acc.orNext = cond.predicate(lhs, ctx, acc)
			acc.hasOr = true
		}
		return false, false
	}

	predicate := cond.predicate(lhs, ctx, acc)
	if acc.hasAnd {
		predicate = predicate && acc.andNext
		acc.hasAnd = false
	}
	if acc.hasOr {
		predicate = predicate || acc.orNext
		acc.hasOr = false
	}
	acc.hasAddress = false

	if cond.RequiredHits > 0 {
		if predicate && cond.CurrentHits < cond.RequiredHits {
			cond.CurrentHits++
		}
		cond.IsTrue = cond.CurrentHits >= cond.RequiredHits
	} else {
		cond.IsTrue = predicate
	}

	switch cond.Flag {
	case FlagMeasured, FlagMeasuredPercent:
		if cond.RequiredHits > 0 {
			cond.measuredValue = cond.CurrentHits
		} else {
			cond.measuredValue = lhs.AsU32()
		}
	}

	return cond.Flag == FlagResetIf && cond.IsTrue, cond.Flag == FlagResetNextIf && cond.IsTrue
}

func addOrInit(acc *accumState, v typedvalue.Value, op typedvalue.Op) typedvalue.Value {
	// acc.addSource is zero whenever no source is pending, so the first
	// AddSource/SubSource yields +v/-v.
	return typedvalue.Combine(acc.addSource, v, op)
}

// resolveOperand evaluates op normally, unless a preceding AddAddress
// condition in the same set left a pending offset, in which case op (if
// it's a plain memref reference) is re-read at its own declared address
// plus that offset instead (spec §4.5 step 2; spec §8 scenario 4). This
// mirrors ModifiedMemref's indirect-read operator rather than operating
// on an already-evaluated numeric value, since AddAddress re-points the
// *read* itself, not the result of one.
func resolveOperand(op *Operand, ctx *EvalContext, acc *accumState) typedvalue.Value {
	if acc.hasAddress {
		if v, ok := op.readAt(ctx, acc.addAddress); ok {
			return v
		}
	}
	return op.EvaluateIn(ctx)
}

func (cond *Condition) predicate(lhs typedvalue.Value, ctx *EvalContext, acc *accumState) bool {
	if cond.Op == CompareNone {
		return lhs.AsU32() != 0
	}
	rhs := resolveOperand(cond.RHS, ctx, acc)
	return typedvalue.CompareValues(lhs, rhs, cond.Op.typed())
}

// ResetHits zeroes this condition's hit counter, used both by ResetIf
// (whole trigger) and ResetNextIf (the single following condition).
func (cond *Condition) ResetHits() {
	cond.CurrentHits = 0
	cond.IsTrue = false
}
