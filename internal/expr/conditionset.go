package expr

// ConditionSet is an ordered sequence of conditions, either a trigger's
// Core set or one of its Alt sets (spec §3 "Condition set").
type ConditionSet struct {
	Conditions []*Condition

	HasPause           bool
	HasIndirectMemrefs bool
	IsPaused           bool
}

// ParseConditionSet parses conditions separated by '_' until the cursor
// reaches 'S' (the start of an alt set) or the end of input.
func (ps *ParseState) ParseConditionSet(c *cursor) (*ConditionSet, Code) {
	cs := &ConditionSet{}

	for {
		cond, code := ps.ParseCondition(c)
		if code != OK {
			return nil, code
		}
		cs.Conditions = append(cs.Conditions, cond)
		if cond.Flag == FlagPauseIf {
			cs.HasPause = true
		}

		if c.peek() != '_' {
			break
		}
		c.advance()
	}

	return cs, OK
}

// setEvalResult summarizes one condition set's evaluation for the
// frame: whether it is satisfied, whether any ResetIf fired, and the
// measured value it contributed (if any condition carried Measured or
// MeasuredPercent).
type setEvalResult struct {
	Satisfied       bool
	ResetTriggered  bool
	Primed          bool
	MeasuredValue   uint32
	MeasuredPercent bool
	HasMeasured     bool
}

// Evaluate runs one frame's pass over every condition in the set,
// following the ten-step procedure in spec §4.5: accumulators thread
// left-to-right, ResetNextIf clears only the following condition's hits,
// ResetIf (if it fires) is reported so the caller can reset the whole
// trigger, and PauseIf latches IsPaused for the set this frame. When the
// set ends the pass paused, every non-PauseIf condition's hit count is put
// back to its value from the start of the pass, so pausing locks hit
// counts (the state table's "PauseIf locks hit counts").
func (cs *ConditionSet) Evaluate(ctx *EvalContext) setEvalResult {
	acc := newAccumState()
	result := setEvalResult{}

	var startHits []uint32
	if cs.HasPause {
		startHits = make([]uint32, len(cs.Conditions))
		for i, cond := range cs.Conditions {
			startHits[i] = cond.CurrentHits
		}
	}

	satisfiedAll := true
	satisfiedNonTrigger := true
	hasTriggerFlag := false

	resetNextPending := false

	for _, cond := range cs.Conditions {
		if resetNextPending && !cond.Flag.isAccumulatorFlag() {
			cond.ResetHits()
			resetNextPending = false
		}

		resetTrigger, resetNext := cond.evalStep(ctx, &acc)
		if resetTrigger {
			result.ResetTriggered = true
		}
		if resetNext {
			resetNextPending = true
		}

		if cond.Flag == FlagPauseIf && cond.IsTrue {
			cs.IsPaused = true
		}

		switch cond.Flag {
		case FlagMeasured:
			result.HasMeasured = true
			result.MeasuredValue = cond.measuredValue
		case FlagMeasuredPercent:
			result.HasMeasured = true
			result.MeasuredPercent = true
			result.MeasuredValue = cond.measuredValue
		}

		if cond.Flag.isAccumulatorFlag() || cond.Flag == FlagPauseIf {
			continue
		}

		if cond.Flag == FlagTrigger {
			hasTriggerFlag = true
			if !cond.IsTrue {
				satisfiedAll = false
			}
		} else if !cond.IsTrue {
			satisfiedAll = false
			satisfiedNonTrigger = false
		}
	}

	if cs.IsPaused {
		for i, cond := range cs.Conditions {
			if startHits != nil && cond.Flag != FlagPauseIf {
				cond.CurrentHits = startHits[i]
			}
		}
		result.Satisfied = false
		result.Primed = false
		return result
	}

	result.Satisfied = satisfiedAll
	result.Primed = hasTriggerFlag && satisfiedNonTrigger && !satisfiedAll
	return result
}

// anyInvalid reports whether any condition in the set reads a memref
// that's been permanently invalidated by a short read.
func (cs *ConditionSet) anyInvalid() bool {
	for _, cond := range cs.Conditions {
		if cond.LHS.invalid() || cond.RHS.invalid() {
			return true
		}
	}
	return false
}

// ResetLatch clears the per-frame IsPaused latch; called once per frame
// before Evaluate so pausing is re-derived fresh each frame rather than
// sticking across frames once triggered.
func (cs *ConditionSet) ResetLatch() {
	cs.IsPaused = false
}

// ResetAllHits zeroes every condition's hit counter, used when a
// trigger-wide ResetIf fires.
func (cs *ConditionSet) ResetAllHits() {
	for _, cond := range cs.Conditions {
		cond.ResetHits()
	}
}
