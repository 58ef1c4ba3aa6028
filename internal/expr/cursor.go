package expr

import (
	"strconv"

	"github.com/northbridge-labs/cheevos/internal/arena"
	"github.com/northbridge-labs/cheevos/internal/memref"
)

// cursor is a read-only position into the DSL source text. Every parse
// function advances it past what it consumed and returns the parsed value
// alongside a Code (OK on success); the consumed length is the cursor's
// movement, not a return value.
type cursor struct {
	src string
	pos int
}

func newCursor(s string) *cursor { return &cursor{src: s} }

func (c *cursor) done() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() byte {
	if c.done() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) peekAt(n int) byte {
	if c.pos+n >= len(c.src) {
		return 0
	}
	return c.src[c.pos+n]
}

func (c *cursor) advance() byte {
	b := c.peek()
	c.pos++
	return b
}

func (c *cursor) consumeIf(b byte) bool {
	if c.peek() == b {
		c.pos++
		return true
	}
	return false
}

// ParseState is the parser's shared context across one trigger, value, or
// rich-presence compilation: the memref graph new memrefs are allocated
// into, the measuring arena they (and any interned strings) are written
// to, and the small amount of left-to-right carried state the grammar
// needs (indirect-read parent, AddSource/SubSource accumulation parent,
// the most recent Remember operand).
type ParseState struct {
	Graph *memref.Graph
	Arena *arena.Buffer

	indirectParent  *Operand
	addSourceParent *Operand
	addSourceOp     memref.ModifierOp
	remember        *Operand

	// Measuring is true during the first ("how many bytes would this
	// take") pass; parse functions must take the identical branches in
	// both passes so the second pass's real allocation exactly matches
	// the byte count the first pass reported.
	Measuring bool
}

// NewParseState creates a parser context bound to one game's memref graph
// and output arena. measuring must match whether a was created with
// arena.Measure(). The parser takes identical branches either way; no
// parse function currently reads the flag.
func NewParseState(g *memref.Graph, a *arena.Buffer, measuring bool) *ParseState {
	return &ParseState{Graph: g, Arena: a, Measuring: measuring}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// takeWhile returns the run of bytes (as a string) satisfying pred
// starting at the cursor, advancing past them.
func (c *cursor) takeWhile(pred func(byte) bool) string {
	start := c.pos
	for !c.done() && pred(c.peek()) {
		c.pos++
	}
	return c.src[start:c.pos]
}

func parseHex32(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	if v > 0xffffffff {
		v = 0xffffffff
	}
	return uint32(v), true
}

func parseUint32Decimal(s string) (uint32, int, bool) {
	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		v = 0xffffffff
	}
	if v > 0xffffffff {
		v = 0xffffffff
	}
	return uint32(v), end, true
}
