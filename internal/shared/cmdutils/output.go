// Package cmdutils holds console formatting shared by the CLI and the console
// integration.
package cmdutils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const Logo = "🌸"

func PrintResponse(name, text string) {
	FprintResponse(os.Stdout, name, text)
}

// FprintResponse writes one agent reply to w.
func FprintResponse(w io.Writer, name, text string) {
	if text == "" {
		return
	}

	fmt.Fprintf(w, "\n%s %s\n%s\n\n", Logo, name, text)
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// Rule returns a horizontal separator n cells wide.
func Rule(n int) string { return strings.Repeat("-", n) }

func YesNo(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

// TokenHint shows the first characters of a secret, or a placeholder when it
// is unset.
func TokenHint(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) > 10 {
		return s[:10] + "..."
	}
	return s
}
