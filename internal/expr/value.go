package expr

// Value is a numeric aggregate: one or more condition sets, each yielding
// a number for the frame, combined by maximum (the default) or by sum
// (spec §3 "Value", §4.5 "Values"). It carries its own current/prior/
// changed triple so other expressions can take deltas of it the same way
// they would a memref.
type Value struct {
	Sets []*ConditionSet
	Sum  bool

	Current uint32
	Prior   uint32
	Changed bool
}

// ParseValue parses sets of conditions separated by '$', each evaluating
// to one number per frame.
func (ps *ParseState) ParseValue(c *cursor) (*Value, Code) {
	v := &Value{}

	for {
		cs, code := ps.ParseConditionSet(c)
		if code != OK {
			return nil, code
		}
		v.Sets = append(v.Sets, cs)

		// A set with no Measured condition measures its last condition's
		// left operand (after any AddSource/SubSource accumulation), so
		// "0xH0013" on its own yields the byte's value.
		measured := false
		for _, cond := range cs.Conditions {
			if cond.Flag == FlagMeasured || cond.Flag == FlagMeasuredPercent {
				measured = true
			}
		}
		if last := len(cs.Conditions) - 1; !measured && last >= 0 && cs.Conditions[last].Flag == FlagStandard {
			cs.Conditions[last].Flag = FlagMeasured
		}

		if c.peek() != '$' {
			break
		}
		c.advance()
	}

	if len(v.Sets) == 0 {
		return nil, ErrMissingValue
	}

	return v, OK
}

// setContribution is the number one condition set contributes to a
// Value's frame result: its Measured value when satisfied and unpaused,
// else zero (spec §4.5: "Measured operand value if satisfied and
// unpaused, else 0"), plus whether the set actually measured anything
// this frame at all (satisfied and unpaused), distinct from having
// measured a legitimate zero. A satisfied set with no Measured condition
// (ParseValue only adds one when the set ends in a standard condition)
// contributes 1.
func setContribution(cs *ConditionSet, ctx *EvalContext) (value uint32, measured bool) {
	cs.ResetLatch()
	r := cs.Evaluate(ctx)
	if cs.IsPaused || !r.Satisfied {
		return 0, false
	}
	if r.HasMeasured {
		return r.MeasuredValue, true
	}
	return 1, true
}

// Evaluate computes this frame's aggregate and updates the value's
// current/prior/changed triple, mirroring a memref's update rule exactly
// (spec §4.5: "The value's cell is then updated with the same prior/
// changed discipline as a memref"). The returned ok distinguishes "no
// condition set was satisfied this frame" (ok=false, reported as 0) from
// "a satisfied set's Measured operand legitimately evaluated to zero"
// (ok=true, value=0) — SPEC_FULL.md's Open Questions §1 resolution.
func (v *Value) Evaluate(ctx *EvalContext) (result uint32, ok bool) {
	if v.Sum {
		for _, cs := range v.Sets {
			c, measured := setContribution(cs, ctx)
			if measured {
				ok = true
			}
			result += c
		}
	} else {
		for _, cs := range v.Sets {
			c, measured := setContribution(cs, ctx)
			if measured && (!ok || c > result) {
				result = c
				ok = true
			}
		}
	}

	if result == v.Current {
		v.Changed = false
	} else {
		v.Prior = v.Current
		v.Current = result
		v.Changed = true
	}

	return result, ok
}
