// Package reporter wires fatih/color into a diag.Reporter, keeping the
// color dependency out of the diag package itself (spec.md §4.H: "the
// message printer is out of scope except for its contract").
package reporter

import (
	"io"

	"github.com/fatih/color"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
)

// New builds a diag.Reporter writing to w. When colorEnabled is false the
// colorizers are identity functions, so forcing --color=never (or a
// non-TTY destination the caller already checked) produces plain text.
func New(w io.Writer, colorEnabled bool) *diag.Reporter {
	rep := diag.New(w)
	if !colorEnabled {
		return rep
	}

	// EnableColor overrides fatih/color's own TTY detection, so a caller's
	// colorEnabled=true (e.g. --color=always) holds even when w is a pipe.
	errorStyle := color.New(color.FgRed, color.Bold)
	errorStyle.EnableColor()
	warningStyle := color.New(color.FgYellow)
	warningStyle.EnableColor()
	errorColor := errorStyle.SprintFunc()
	warningColor := warningStyle.SprintFunc()

	rep.SetColorizers(
		func(s string) string { return errorColor(s) },
		func(s string) string { return warningColor(s) },
	)
	return rep
}
