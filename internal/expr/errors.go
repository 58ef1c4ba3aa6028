// Package expr compiles and evaluates the achievement DSL: operands,
// conditions, condition sets, triggers, values, and rich-presence
// templates. Parsing and evaluation live together, the way the original
// engine keeps an operand's parse and evaluate logic in one translation
// unit — the parsed structures are exactly what the evaluator walks, with
// no separate AST-to-bytecode lowering step.
package expr

// Code is the engine's single negative-integer error space (spec §7).
// The only non-negative Code is OK; a byte count is never multiplexed onto
// a Code.
type Code int

const (
	// OK is not itself an error; parse functions return it alongside the
	// parsed value when nothing went wrong.
	OK Code = 0

	// Parse errors.
	ErrInvalidMemoryOperand Code = -1 - iota
	ErrInvalidConstOperand
	ErrInvalidFPOperand
	ErrInvalidConditionType
	ErrInvalidOperator
	ErrInvalidRequiredHits
	ErrDuplicatedStart
	ErrDuplicatedCancel
	ErrDuplicatedSubmit
	ErrDuplicatedValue
	ErrDuplicatedProgress
	ErrMissingStart
	ErrMissingCancel
	ErrMissingSubmit
	ErrMissingValue
	ErrInvalidLboardField
	ErrMissingDisplayString
	ErrInvalidValueFlag
	ErrMissingValueMeasured
	ErrMultipleMeasured
	ErrInvalidMeasuredTarget
	ErrInvalidComparison
	ErrInvalidLuaOperand
	ErrInvalidVariableName
	ErrUnknownVariableName

	// Runtime errors.
	ErrOutOfMemory
	ErrInvalidState
	ErrInvalidJSON
	ErrMissingValueRuntime
	ErrAPIFailure
	ErrLoginRequired
	ErrNoGameLoaded
	ErrHardcoreDisabled
	ErrAborted
	ErrNoResponse
	ErrAccessDenied
	ErrInvalidCredentials
	ErrExpiredToken
	ErrBufferOverflow
)

var codeText = map[Code]string{
	ErrInvalidMemoryOperand:  "invalid memory operand",
	ErrInvalidConstOperand:   "invalid constant operand",
	ErrInvalidFPOperand:      "invalid floating point operand",
	ErrInvalidConditionType:  "invalid condition type",
	ErrInvalidOperator:       "invalid operator",
	ErrInvalidRequiredHits:   "invalid required hits",
	ErrDuplicatedStart:       "duplicated start condition",
	ErrDuplicatedCancel:      "duplicated cancel condition",
	ErrDuplicatedSubmit:      "duplicated submit condition",
	ErrDuplicatedValue:       "duplicated value expression",
	ErrDuplicatedProgress:    "duplicated progress expression",
	ErrMissingStart:          "missing start condition",
	ErrMissingCancel:         "missing cancel condition",
	ErrMissingSubmit:         "missing submit condition",
	ErrMissingValue:          "missing value expression",
	ErrInvalidLboardField:    "invalid leaderboard field",
	ErrMissingDisplayString:  "missing display string",
	ErrInvalidValueFlag:      "invalid value flag",
	ErrMissingValueMeasured:  "missing measured value",
	ErrMultipleMeasured:      "multiple measured conditions",
	ErrInvalidMeasuredTarget: "invalid measured target",
	ErrInvalidComparison:     "invalid comparison",
	ErrInvalidLuaOperand:     "invalid lua operand",
	ErrInvalidVariableName:   "invalid variable name",
	ErrUnknownVariableName:   "unknown variable name",
	ErrOutOfMemory:           "out of memory",
	ErrInvalidState:         "invalid state",
	ErrInvalidJSON:          "invalid json",
	ErrMissingValueRuntime:  "missing value",
	ErrAPIFailure:           "api call failed",
	ErrLoginRequired:        "login required",
	ErrNoGameLoaded:         "no game loaded",
	ErrHardcoreDisabled:     "hardcore disabled",
	ErrAborted:              "aborted",
	ErrNoResponse:           "no response from server",
	ErrAccessDenied:         "access denied",
	ErrInvalidCredentials:   "invalid credentials",
	ErrExpiredToken:         "expired token",
	ErrBufferOverflow:       "buffer overflow",
}

// Error implements the error interface so a Code can be returned directly
// wherever Go idiom expects an error rather than a raw int.
func (c Code) Error() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "unknown error"
}
