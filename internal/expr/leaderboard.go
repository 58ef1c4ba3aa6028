package expr

import (
	"strings"

	"github.com/northbridge-labs/cheevos/internal/format"
)

// Leaderboard is a scored competitive entry: Start/Cancel/Submit triggers
// gate when an attempt begins, is abandoned, or is submitted; Value
// computes the score, which is also what the live tracker shows; an
// optional Progress value is parsed and kept, but Evaluate does not read
// it; Format names how the value renders as text (spec §4.3 grammar `lboard`, a
// feature the distilled spec's grammar names but whose evaluation
// semantics this repository supplements from the original engine's
// lower_is_better / decimal-places leaderboard hints — see SPEC_FULL.md).
type Leaderboard struct {
	Start  *Trigger
	Cancel *Trigger
	Submit *Trigger
	Value  *Value
	Progress *Value

	Format        string
	LowerIsBetter bool

	// started is true from the frame Start fires until Cancel or Submit
	// fires; only then are Cancel, Value, and Submit evaluated.
	started bool
}

// ParseLeaderboard parses the "STA:...::SUB:...::CAN:...::VAL:...
// [::PRO:...]::FOR:..." grammar (spec §4.3).
func (ps *ParseState) ParseLeaderboard(src string) (*Leaderboard, Code) {
	fields := strings.Split(src, "::")
	lb := &Leaderboard{}

	var sawStart, sawSub, sawCan, sawVal bool

	for _, field := range fields {
		tag, body, ok := strings.Cut(field, ":")
		if !ok {
			return nil, ErrInvalidLboardField
		}

		switch strings.ToUpper(tag) {
		case "STA":
			if sawStart {
				return nil, ErrDuplicatedStart
			}
			sawStart = true
			t, code := ps.ParseTrigger(newCursor(body))
			if code != OK {
				return nil, code
			}
			lb.Start = t

		case "SUB":
			if sawSub {
				return nil, ErrDuplicatedSubmit
			}
			sawSub = true
			t, code := ps.ParseTrigger(newCursor(body))
			if code != OK {
				return nil, code
			}
			lb.Submit = t

		case "CAN":
			if sawCan {
				return nil, ErrDuplicatedCancel
			}
			sawCan = true
			t, code := ps.ParseTrigger(newCursor(body))
			if code != OK {
				return nil, code
			}
			lb.Cancel = t

		case "VAL":
			if sawVal {
				return nil, ErrDuplicatedValue
			}
			sawVal = true
			v, code := ps.ParseValue(newCursor(body))
			if code != OK {
				return nil, code
			}
			lb.Value = v

		case "PRO":
			v, code := ps.ParseValue(newCursor(body))
			if code != OK {
				return nil, code
			}
			lb.Progress = v

		case "FOR":
			lb.Format = strings.ToUpper(body)

		default:
			return nil, ErrInvalidLboardField
		}
	}

	if !sawStart {
		return nil, ErrMissingStart
	}
	if !sawCan {
		return nil, ErrMissingCancel
	}
	if !sawSub {
		return nil, ErrMissingSubmit
	}
	if !sawVal {
		return nil, ErrMissingValue
	}

	return lb, OK
}

// LeaderboardEvent reports what a leaderboard did this frame, driving the
// runtime's tracker/submission event debouncing (spec §4.8).
type LeaderboardEvent uint8

const (
	LboardEventNone LeaderboardEvent = iota
	LboardEventStarted
	LboardEventCancelled
	LboardEventUpdated
	LboardEventSubmitted
)

// Evaluate runs one frame of the leaderboard: only Start while no attempt
// is running, otherwise Cancel, then Value, then Submit. It returns the
// entry's current value alongside what happened.
func (lb *Leaderboard) Evaluate(ctx *EvalContext) (value int64, formatted string, ev LeaderboardEvent) {
	if !lb.started {
		lb.Start.Activate()
		if lb.Start.Evaluate(ctx) == EventTriggered {
			lb.started = true
			lb.Cancel.Activate()
			lb.Submit.Activate()
			ev = LboardEventStarted
		}
		return 0, "", ev
	}

	if lb.Cancel.Evaluate(ctx) == EventTriggered {
		lb.Reset()
		return 0, "", LboardEventCancelled
	}

	raw, _ := lb.Value.Evaluate(ctx)
	value = int64(int32(raw))
	formatted = format.Apply(lb.Format, value)
	ev = LboardEventUpdated

	if lb.Submit.Evaluate(ctx) == EventTriggered {
		lb.Reset()
		ev = LboardEventSubmitted
	}

	return value, formatted, ev
}

// Reset returns the leaderboard to its pre-attempt state: Start waits
// again and Cancel/Submit go back to Inactive until Start re-fires.
func (lb *Leaderboard) Reset() {
	lb.started = false
	lb.Start.State = StateWaiting
	lb.Cancel.State = StateInactive
	lb.Submit.State = StateInactive
}
