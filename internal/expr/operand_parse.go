package expr

import "github.com/northbridge-labs/cheevos/internal/memref"

// ParseOperand parses one operand starting at the cursor, grounded on
// rc_parse_operand. It handles every leaf form the grammar names:
// modified memory references, signed/unsigned/hex/float constants, the
// {recall} variable, and (if present) a Lua scriptlet reference.
func (ps *ParseState) ParseOperand(c *cursor) (*Operand, Code) {
	o := &Operand{}

	switch c.peek() {
	case 'h', 'H':
		if c.peekAt(2) == 'x' || c.peekAt(2) == 'X' {
			return nil, ErrInvalidConstOperand
		}
		c.advance()
		hexDigits := c.takeWhile(isHex)
		v, ok := parseHex32(hexDigits)
		if !ok {
			return nil, ErrInvalidConstOperand
		}
		o.setConst(v)
		return o, OK

	case 'f', 'F':
		if isAlpha(c.peekAt(1)) {
			return ps.parseMemoryOperand(c)
		}
		if c.peekAt(1) == '.' {
			return nil, ErrInvalidFPOperand
		}
		c.advance()
		return ps.parseNumericOperand(c, true)

	case 'v', 'V':
		c.advance()
		return ps.parseNumericOperand(c, false)

	case '+', '-':
		return ps.parseNumericOperand(c, false)

	case '{':
		c.advance()
		return ps.parseVariableOperand(c)

	case '@':
		return ps.parseLuaOperand(c)

	case '0':
		if c.peekAt(1) == 'x' || c.peekAt(1) == 'X' {
			return ps.parseMemoryOperand(c)
		}
		return ps.parseIntegerConstant(c)

	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return ps.parseIntegerConstant(c)

	default:
		return ps.parseMemoryOperand(c)
	}
}

func (ps *ParseState) parseIntegerConstant(c *cursor) (*Operand, Code) {
	digits := c.takeWhile(isDigit)
	v, ok := parseHex32WithBase10(digits)
	if !ok {
		return nil, ErrInvalidConstOperand
	}
	o := &Operand{}
	o.setConst(v)
	return o, OK
}

func parseHex32WithBase10(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		v = v*10 + uint64(s[i]-'0')
		if v > 0xffffffff {
			v = 0xffffffff
		}
	}
	return uint32(v), true
}

// parseNumericOperand parses a signed integer or (when allowDecimal) a
// decimal floating point constant, mirroring the '+'/'-'/'v'/'f' branch of
// rc_parse_operand including its manual, locale-free decimal parser.
func (ps *ParseState) parseNumericOperand(c *cursor, allowDecimal bool) (*Operand, Code) {
	negative := false
	switch c.peek() {
	case '-':
		negative = true
		c.advance()
	case '+':
		c.advance()
	}

	intDigits := c.takeWhile(isDigit)
	if intDigits == "" && c.peek() != '.' {
		if allowDecimal {
			return nil, ErrInvalidFPOperand
		}
		return nil, ErrInvalidConstOperand
	}

	value, _ := parseHex32WithBase10(intDigits)

	if allowDecimal && c.peek() == '.' {
		c.advance()
		fracDigits := c.takeWhile(isDigit)
		if fracDigits == "" {
			return nil, ErrInvalidFPOperand
		}
		var fraction float64
		var shift float64 = 1
		for i := 0; i < len(fracDigits); i++ {
			fraction = fraction*10 + float64(fracDigits[i]-'0')
			shift *= 10
		}
		dblVal := float64(value) + fraction/shift
		if negative {
			dblVal = -dblVal
		}
		o := &Operand{}
		o.setFloatConst(dblVal)
		return o, OK
	}

	if value > 0x7fffffff {
		value = 0x7fffffff
	}
	o := &Operand{}
	if negative {
		o.setConst(uint32(-int64(value)))
	} else {
		o.setConst(value)
	}
	return o, OK
}

func (ps *ParseState) parseVariableOperand(c *cursor) (*Operand, Code) {
	const maxNameLen = 64
	start := c.pos
	for c.pos-start < maxNameLen && c.peek() != '}' && !c.done() {
		if !isValidVariableChar(c.peek(), c.pos == start) {
			return nil, ErrInvalidVariableName
		}
		c.advance()
	}
	name := c.src[start:c.pos]
	if name == "" {
		return nil, ErrInvalidVariableName
	}
	if c.peek() != '}' {
		return nil, ErrInvalidVariableName
	}
	c.advance()

	if name != "recall" {
		return nil, ErrUnknownVariableName
	}

	o := &Operand{Kind: OperandRecall}
	if ps.remember != nil {
		o.memrefAccessType = ps.remember.Kind
		o.Ref = ps.remember.Ref
		o.Size = ps.remember.Size
	} else {
		o.Size = memref.Bits32
		o.memrefAccessType = OperandAddress
	}
	return o, OK
}

func (ps *ParseState) parseLuaOperand(c *cursor) (*Operand, Code) {
	c.advance() // '@'
	if !isAlpha(c.peek()) {
		return nil, ErrInvalidLuaOperand
	}
	name := c.takeWhile(func(b byte) bool { return isAlnum(b) || b == '_' })
	return &Operand{Kind: OperandLua, LuaName: name}, OK
}

// parseMemoryOperand handles the 'd'/'p'/'b'/'~' access-modifier prefixes
// plus the underlying memref lexing, and applies indirect-parent /
// non-shared prior tie-break rules exactly as rc_parse_operand_memory
// does.
func (ps *ParseState) parseMemoryOperand(c *cursor) (*Operand, Code) {
	o := &Operand{}

	switch c.peek() {
	case 'd', 'D':
		o.Kind = OperandDelta
		c.advance()
	case 'p', 'P':
		o.Kind = OperandPrior
		c.advance()
	case 'b', 'B':
		o.Kind = OperandBCD
		c.advance()
	case '~':
		o.Kind = OperandInverted
		c.advance()
	default:
		o.Kind = OperandAddress
	}
	o.memrefAccessType = o.Kind

	size, address, code := parseMemref(c)
	if code != OK {
		return nil, code
	}
	o.Size = size

	effective := size.SharedSize()
	if effective != size && o.Kind == OperandPrior {
		if effective.Mask() != size.Mask() {
			effective = size
		}
	}

	if ps.indirectParent != nil {
		if ps.indirectParent.Kind == OperandConst {
			o.Ref = ps.Graph.Alloc(address+ps.indirectParent.ConstU32, effective)
		} else {
			offset := &Operand{}
			offset.setConst(address)
			o.Ref = ps.Graph.AllocModified(effective, ps.parentMemref(ps.indirectParent),
				ps.parentView(ps.indirectParent), memref.ModIndirectRead, offset)
		}
	} else if effective != size.SharedSize() {
		o.Ref = ps.Graph.AllocNonShared(address, effective)
	} else {
		o.Ref = ps.Graph.Alloc(address, effective)
	}

	return o, OK
}

// parentMemref resolves the *memref.Memref backing an indirect-read
// parent operand. Only plain address/delta/prior/BCD/inverted operands on
// a plain memref can serve as an indirect-read parent in this
// implementation (a modified-memref parent is itself resolved through its
// own Modifier chain, not re-wrapped here).
func (ps *ParseState) parentMemref(o *Operand) *memref.Memref {
	if mr, ok := o.Ref.(*memref.Memref); ok {
		return mr
	}
	// A modified-memref parent still exposes a Memref triple via
	// embedding; callers needing indirect-read chaining through another
	// modified memref are expected to have already flattened through
	// AddAddress accumulation (see condition.go).
	return nil
}

func (ps *ParseState) parentView(o *Operand) memref.OperandView {
	return operandView(o.Kind)
}
