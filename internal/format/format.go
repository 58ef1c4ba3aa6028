// Package format renders a numeric value as one of the DSL's named
// display formats (spec §4.6). Each formatter is pure and produces plain
// ASCII; buffer sizing assumes no formatted value exceeds 32 characters.
//
// Formatters are self-registering by name, the same shape as the
// teacher's internal/stubs/registry.go pattern: an init-time map keyed on
// a string, looked up at render time rather than switched on by a fixed
// enum, so a caller (or a future plugin) can add formats without editing
// this package.
package format

import (
	"fmt"
	"strings"
	"sync"
)

// Func renders a raw operand value (already evaluated — see
// internal/expr) as text.
type Func func(value int64) string

var (
	mu       sync.RWMutex
	registry = make(map[string]Func)
)

// Register adds a named formatter. Called from init() for every built-in
// format below; a caller embedding this package can call it too, to add
// a custom @Macro name.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = fn
}

// Lookup returns the formatter registered under name, and whether one
// exists.
func Lookup(name string) (Func, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Apply formats value using the named formatter, or returns the decimal
// value unchanged if name isn't registered (an unknown @Macro renders its
// raw operand rather than failing the whole template).
func Apply(name string, value int64) string {
	if fn, ok := Lookup(name); ok {
		return fn(value)
	}
	return fmt.Sprintf("%d", value)
}

// Names used by the DSL's @Macro(operand) rich-presence forms and by
// leaderboard ::FOR: fields (spec §4.6's enum, plus the conventional
// RetroAchievements format names rich-presence authors actually write).
const (
	Value            = "VALUE"
	Score            = "SCORE"
	Frames           = "FRAMES"
	Seconds          = "SECONDS"
	Centiseconds     = "CENTISECS"
	Minutes          = "MINUTES"
	SecondsAsMinutes = "SECONDS_AS_MINUTES"
	Float1           = "FLOAT1"
	Float2           = "FLOAT2"
	Float3           = "FLOAT3"
	Float4           = "FLOAT4"
	Float5           = "FLOAT5"
	Float6           = "FLOAT6"
	Fixed1           = "FIXED1"
	Fixed2           = "FIXED2"
	Fixed3           = "FIXED3"
	Tens             = "TENS"
	Hundreds         = "HUNDREDS"
	Thousands        = "THOUSANDS"
	UnsignedValue    = "UNSIGNED"
	Unformatted      = "UNFORMATTED"
)

func init() {
	Register(Value, func(v int64) string { return fmt.Sprintf("%d", v) })
	Register(UnsignedValue, func(v int64) string { return fmt.Sprintf("%d", uint32(v)) })
	Register(Unformatted, func(v int64) string { return fmt.Sprintf("%d", v) })

	Register(Score, func(v int64) string { return fmt.Sprintf("%06d", v) })

	Register(Frames, func(v int64) string { return framesToClock(v, 60) })
	Register(Seconds, func(v int64) string { return framesToClock(v, 1) })
	Register(Centiseconds, func(v int64) string { return framesToClock(v, 100) })
	Register(Minutes, func(v int64) string { return fmt.Sprintf("%dh%02dm", v/60, v%60) })
	Register(SecondsAsMinutes, func(v int64) string { return fmt.Sprintf("%d:%02d", v/60, v%60) })

	Register(Tens, func(v int64) string { return fmt.Sprintf("%d", v*10) })
	Register(Hundreds, func(v int64) string { return fmt.Sprintf("%d", v*100) })
	Register(Thousands, func(v int64) string { return fmt.Sprintf("%d", v*1000) })

	for i := 1; i <= 6; i++ {
		n := i
		Register(fmt.Sprintf("FLOAT%d", n), func(v int64) string {
			return floatFixed(v, n)
		})
	}
	for i := 1; i <= 3; i++ {
		n := i
		Register(fmt.Sprintf("FIXED%d", n), func(v int64) string {
			return fixedPoint(v, n)
		})
	}
}

// framesToClock converts a frame count sampled at hz frames/second into
// h:mm:ss.ff (or a shorter form when hours/centiseconds don't apply).
func framesToClock(frames int64, hz int64) string {
	if hz <= 0 {
		hz = 1
	}
	totalSeconds := frames / hz
	remainder := frames % hz

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%d:%02d:%02d", hours, minutes, seconds)
	} else {
		fmt.Fprintf(&b, "%d:%02d", minutes, seconds)
	}
	if hz > 1 {
		fmt.Fprintf(&b, ".%02d", remainder*100/hz)
	}
	return b.String()
}

// floatFixed renders v (an integer operand value representing a fixed-
// point number with 'places' implied decimal digits) with that many
// decimals — FLOATn treats the raw value as already scaled by 10^n.
func floatFixed(v int64, places int) string {
	scale := int64(1)
	for i := 0; i < places; i++ {
		scale *= 10
	}
	whole := v / scale
	frac := v % scale
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%0*d", whole, places, frac)
}

// fixedPoint renders v as a decimal with 'places' digits after the point,
// where v is the value in the smallest unit (e.g. FIXED2 treats v as
// cents).
func fixedPoint(v int64, places int) string {
	return floatFixed(v, places)
}
