// Package colorize provides plain ANSI text styling, used by the demo
// CLI's view for its counter display, adapted from the teacher's
// disassembly colorizer with the chroma-based instruction highlighting
// dropped (the demo shows at most one plain, uncolored instruction
// mnemonic) and the env var renamed to match this project.
package colorize

import (
	"fmt"
	"os"
)

// IsDisabled returns true if colors are disabled via environment.
func IsDisabled() bool {
	return os.Getenv("CHEEVOS_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// Address formats a memory address in yellow.
func Address(addr uint32) string {
	if IsDisabled() {
		return fmt.Sprintf("%08X", addr)
	}
	return fmt.Sprintf("\033[38;2;255;200;0m%08X\033[0m", addr)
}

// Key formats a captured value in red (high visibility).
func Key(key string) string {
	if IsDisabled() {
		return key
	}
	return fmt.Sprintf("\033[38;2;255;80;80m%s\033[0m", key)
}

// Border formats border characters in dark gray.
func Border(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;80;80;80m%s\033[0m", s)
}

// Header formats header text in blue.
func Header(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;86;156;214m%s\033[0m", s)
}

// Error formats error messages in pink.
func Error(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;255;128;192m%s\033[0m", s)
}

// String formats string values in green.
func String(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;0;255;0m%s\033[0m", s)
}
