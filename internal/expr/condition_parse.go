package expr

// ParseCondition parses one condition: an optional flag prefix, an
// operand, an optional comparison and second operand, and an optional
// `.N.` required-hits suffix (spec §4.3 grammar: `condition`).
func (ps *ParseState) ParseCondition(c *cursor) (*Condition, Code) {
	cond := &Condition{Flag: FlagStandard}

	if flag, ok := ps.parseFlagPrefix(c); ok {
		cond.Flag = flag
	}

	lhs, code := ps.ParseOperand(c)
	if code != OK {
		return nil, code
	}
	cond.LHS = lhs

	if cmp, ok := parseCompareOp(c); ok {
		cond.Op = cmp
		rhs, code := ps.ParseOperand(c)
		if code != OK {
			return nil, code
		}
		cond.RHS = rhs
	} else {
		cond.Op = CompareNone
		cond.RHS = &Operand{}
		cond.RHS.setConst(0)
	}

	if c.peek() == '.' {
		c.advance()
		digits := c.takeWhile(isDigit)
		if digits == "" {
			return nil, ErrInvalidRequiredHits
		}
		hits, _ := parseHex32WithBase10(digits)
		if c.peek() != '.' {
			return nil, ErrInvalidRequiredHits
		}
		c.advance()
		cond.RequiredHits = hits
	}

	return cond, OK
}

// parseFlagPrefix recognizes a single-letter flag followed by ':'.
func (ps *ParseState) parseFlagPrefix(c *cursor) (Flag, bool) {
	save := c.pos
	// Two-letter prefixes are not used by this grammar; every flag is a
	// single letter followed by ':' (spec §6).
	if isAlpha(c.peek()) && c.peekAt(1) == ':' {
		letter := string(c.peek())
		if flag, ok := flagPrefixes[letter]; ok {
			c.pos += 2
			return flag, true
		}
	}
	c.pos = save
	return 0, false
}

func parseCompareOp(c *cursor) (Compare, bool) {
	switch c.peek() {
	case '=':
		c.advance()
		return CompareEqual, true
	case '!':
		if c.peekAt(1) == '=' {
			c.pos += 2
			return CompareNotEqual, true
		}
		return 0, false
	case '<':
		if c.peekAt(1) == '=' {
			c.pos += 2
			return CompareLessThanOrEqual, true
		}
		c.advance()
		return CompareLessThan, true
	case '>':
		if c.peekAt(1) == '=' {
			c.pos += 2
			return CompareGreaterThanOrEqual, true
		}
		c.advance()
		return CompareGreaterThan, true
	case '*':
		c.advance()
		return CompareEqual, true
	default:
		return 0, false
	}
}
