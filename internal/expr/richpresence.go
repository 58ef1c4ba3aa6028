package expr

import (
	"strings"

	"github.com/northbridge-labs/cheevos/internal/format"
)

// ParseRichPresenceScript compiles the patch data's multi-line rich
// presence script into a RichPresence. Only the "Display:" section is
// honored — one conditional "trigger?template" line per satisfied-state
// entry, in order, followed by the fallback default template on its
// own line. Lookup:/Format: sections from the original engine's script
// format are a further degree of indirection (named value tables, and
// user-defined numeric formats) this repository's formatter registry
// doesn't need, since every macro resolves directly against the
// built-in formats in internal/format — see DESIGN.md.
func (ps *ParseState) ParseRichPresenceScript(script string) (*RichPresence, Code) {
	lines := strings.Split(script, "\n")

	displayStart := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "Display:" {
			displayStart = i + 1
			break
		}
	}
	if displayStart < 0 {
		return nil, ErrMissingDisplayString
	}

	var entries []RichPresenceEntry
	defaultTemplate := ""

	for _, raw := range lines[displayStart:] {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "Lookup:") || strings.HasPrefix(line, "Format:") {
			break
		}

		cond, template, hasCond := strings.Cut(line, "?")
		if !hasCond {
			defaultTemplate = line
			continue
		}

		trigger, code := ps.ParseTrigger(newCursor(cond))
		if code != OK {
			return nil, code
		}
		entries = append(entries, NewRichPresenceEntry(trigger, template))
	}

	if defaultTemplate == "" {
		defaultTemplate = "Playing"
	}

	return ps.ParseRichPresence(entries, defaultTemplate)
}

// templateSegment is one piece of a precompiled rich-presence template:
// either literal text (Operand nil) or a @Macro(operand) reference
// resolved once at parse time against the game's real memref graph, so
// rendering never re-parses or re-allocates memrefs per frame.
type templateSegment struct {
	Literal   string
	MacroName string
	Operand   *Operand
}

// RichPresenceEntry pairs a trigger with the template to render while it
// is satisfied (spec §3 "Rich-presence display"). rawTemplate holds the
// source text until ParseRichPresence compiles it into segments.
type RichPresenceEntry struct {
	Trigger     *Trigger
	rawTemplate string
	segments    []templateSegment
}

// RichPresence is the ordered list of conditional display entries plus a
// fallback default template.
type RichPresence struct {
	Entries         []RichPresenceEntry
	defaultSegments []templateSegment
}

// ParseRichPresence compiles every entry's template and the default
// template once, against this ParseState's memref graph, so every
// @Macro(operand) resolves to a real (possibly shared) memref up front.
func (ps *ParseState) ParseRichPresence(entries []RichPresenceEntry, defaultTemplate string) (*RichPresence, Code) {
	rp := &RichPresence{}

	for _, e := range entries {
		segs, code := ps.compileTemplate(e.rawTemplate)
		if code != OK {
			return nil, code
		}
		e.segments = segs
		rp.Entries = append(rp.Entries, e)
	}

	segs, code := ps.compileTemplate(defaultTemplate)
	if code != OK {
		return nil, code
	}
	if len(segs) == 0 {
		return nil, ErrMissingDisplayString
	}
	rp.defaultSegments = segs

	return rp, OK
}

// NewRichPresenceEntry builds an entry for ParseRichPresence from a
// trigger and its source template text.
func NewRichPresenceEntry(t *Trigger, template string) RichPresenceEntry {
	return RichPresenceEntry{Trigger: t, rawTemplate: template}
}

// Render evaluates each entry's trigger in declaration order and returns
// the first satisfied one's rendered template, or the rendered default if
// none are satisfied (spec §4.5 "Rich presence").
func (rp *RichPresence) Render(ctx *EvalContext) string {
	for _, e := range rp.Entries {
		e.Trigger.Core.ResetLatch()
		if e.Trigger.Core.Evaluate(ctx).Satisfied {
			return renderSegments(e.segments, ctx)
		}
	}
	return renderSegments(rp.defaultSegments, ctx)
}

func renderSegments(segs []templateSegment, ctx *EvalContext) string {
	var out strings.Builder
	for _, s := range segs {
		if s.Operand == nil {
			out.WriteString(s.Literal)
			continue
		}
		value := s.Operand.EvaluateIn(ctx).AsI64()
		out.WriteString(format.Apply(s.MacroName, value))
	}
	return out.String()
}

// compileTemplate splits tmpl into literal and macro segments, parsing
// each macro's operand argument exactly once against ps's memref graph.
func (ps *ParseState) compileTemplate(tmpl string) ([]templateSegment, Code) {
	var segs []templateSegment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segs = append(segs, templateSegment{Literal: literal.String()})
			literal.Reset()
		}
	}

	i := 0
	for i < len(tmpl) {
		if tmpl[i] != '@' {
			literal.WriteByte(tmpl[i])
			i++
			continue
		}

		nameEnd := i + 1
		for nameEnd < len(tmpl) && (isAlnum(tmpl[nameEnd]) || tmpl[nameEnd] == '_') {
			nameEnd++
		}
		if nameEnd == i+1 || nameEnd >= len(tmpl) || tmpl[nameEnd] != '(' {
			literal.WriteByte(tmpl[i])
			i++
			continue
		}

		closeIdx := strings.IndexByte(tmpl[nameEnd:], ')')
		if closeIdx < 0 {
			literal.WriteString(tmpl[i:])
			i = len(tmpl)
			break
		}

		name := tmpl[i+1 : nameEnd]
		argText := tmpl[nameEnd+1 : nameEnd+closeIdx]

		operand, code := ps.ParseOperand(newCursor(argText))
		if code != OK {
			return nil, code
		}

		flush()
		segs = append(segs, templateSegment{MacroName: strings.ToUpper(name), Operand: operand})

		i = nameEnd + closeIdx + 1
	}
	flush()

	return segs, OK
}
