package expr

import "github.com/northbridge-labs/cheevos/internal/memref"

// sizeTags maps the DSL's post-"0x" size-tag letters to memory sizes,
// grounded on spec §6's table. Tags are case-insensitive; both cases of a
// letter map to the same size.
var sizeTags = map[byte]memref.Size{
	'h': memref.Bits8, 'H': memref.Bits8,
	' ': memref.Bits16,
	'x': memref.Bits32, 'X': memref.Bits32,
	'm': memref.Bit0, 'M': memref.Bit0,
	'n': memref.Bit1, 'N': memref.Bit1,
	'o': memref.Bit2, 'O': memref.Bit2,
	'p': memref.Bit3, 'P': memref.Bit3,
	'q': memref.Bit4, 'Q': memref.Bit4,
	'r': memref.Bit5, 'R': memref.Bit5,
	's': memref.Bit6, 'S': memref.Bit6,
	't': memref.Bit7, 'T': memref.Bit7,
	'l': memref.Low, 'L': memref.Low,
	'u': memref.High, 'U': memref.High,
	'k': memref.BitCount, 'K': memref.BitCount,
	'w': memref.Bits24, 'W': memref.Bits24,
	'g': memref.Bits32BE, 'G': memref.Bits32BE,
	'i': memref.Bits16BE, 'I': memref.Bits16BE,
	'j': memref.Bits24BE, 'J': memref.Bits24BE,
}

var floatSizeTags = map[byte]memref.Size{
	'f': memref.Float, 'F': memref.Float,
	'b': memref.FloatBE, 'B': memref.FloatBE,
	'h': memref.Double32, 'H': memref.Double32,
	'i': memref.Double32BE, 'I': memref.Double32BE,
	'm': memref.MBF32, 'M': memref.MBF32,
	'l': memref.MBF32LE, 'L': memref.MBF32LE,
}

// parseMemref lexes "0x<size-tag><hex>" or "f<float-tag><hex>", prefix
// included (it consumes the "0x" or "f" itself), into a size and address,
// mirroring rc_parse_memref.
func parseMemref(c *cursor) (memref.Size, uint32, Code) {
	if c.peek() == '0' && (c.peekAt(1) == 'x' || c.peekAt(1) == 'X') {
		c.advance() // '0'
		c.advance() // 'x'/'X'

		tag := c.peek()
		size, ok := sizeTags[tag]
		if !ok {
			// untagged "0x..." defaults to 16-bit, matching the classic
			// RetroAchievements DSL shorthand.
			size = memref.Bits16
		} else {
			c.advance()
		}

		hex := c.takeWhile(isHex)
		addr, ok := parseHex32(hex)
		if !ok {
			return 0, 0, ErrInvalidMemoryOperand
		}
		return size, addr, OK
	}

	if c.peek() == 'f' || c.peek() == 'F' {
		c.advance()
		tag := c.advance()
		size, ok := floatSizeTags[tag]
		if !ok {
			return 0, 0, ErrInvalidMemoryOperand
		}
		hex := c.takeWhile(isHex)
		addr, ok := parseHex32(hex)
		if !ok {
			return 0, 0, ErrInvalidMemoryOperand
		}
		return size, addr, OK
	}

	return 0, 0, ErrInvalidMemoryOperand
}

func isValidVariableChar(b byte, first bool) bool {
	if isAlpha(b) || b == '_' {
		return true
	}
	if !first && isDigit(b) {
		return true
	}
	return false
}
