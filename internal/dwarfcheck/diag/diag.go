// Package diag implements the message taxonomy and severity filter every
// checker component reports through (spec.md §4.H). A message carries a
// Category bitmask spanning three orthogonal axes — severity, accuracy and
// area — plus an independent error flag; a Reporter filters messages with an
// accept/reject bitmask and tracks the process-wide error count.
package diag

import (
	"fmt"
	"io"
	"strings"
)

// Category is a bitmask combining a severity level, an accuracy flag, an
// area and the error flag into a single comparable value, so acceptance
// testing is the single bitwise check spec.md §4.H describes:
// (accept & cat) != 0 && (reject & cat) == 0.
type Category uint64

const (
	Impact1 Category = 1 << iota
	Impact2
	Impact3
	Impact4

	Bloat
	Suboptimal

	AreaLEB128
	AreaAbbrevs
	AreaDieRelSibling
	AreaDieRelChild
	AreaDieRelRef
	AreaDieOther
	AreaStrings
	AreaAranges
	AreaELF
	AreaPubnames
	AreaOther

	// ErrorFlag escalates a message to error status (together with
	// Impact4) regardless of which area/accuracy bits are also set.
	ErrorFlag
)

// AllAreas is the union of every area bit, used to build default accept
// masks.
const AllAreas = AreaLEB128 | AreaAbbrevs | AreaDieRelSibling | AreaDieRelChild |
	AreaDieRelRef | AreaDieOther | AreaStrings | AreaAranges | AreaELF | AreaPubnames | AreaOther

// DefaultAccept is every area except strings (spec.md §4.H: "accept =
// all-areas minus strings").
const DefaultAccept = AllAreas &^ AreaStrings

// DefaultReject is empty.
const DefaultReject Category = 0

// Loc carries the positional context spec.md §6 requires in front of a
// message: a section name plus whichever of CU/DIE/abbrev/attribute/arange
// table/record/pubname set offsets apply.
type Loc struct {
	Section     string
	CU          *uint64
	DIE         *uint64
	Abbrev      *uint64
	Attribute   *uint64
	ArangeTable *uint64
	Record      *uint64
	PubnameSet  *uint64
}

func hexField(label string, v *uint64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s 0x%x", label, *v)
}

// String renders the location as the prefix spec.md §6 describes, e.g.
// ".debug_info, CU 0x0, DIE 0x1b: ".
func (l Loc) String() string {
	var parts []string
	if l.Section != "" {
		parts = append(parts, l.Section)
	}
	if s := hexField("CU", l.CU); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("DIE", l.DIE); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("abbrev", l.Abbrev); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("attribute", l.Attribute); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("arange table", l.ArangeTable); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("record", l.Record); s != "" {
		parts = append(parts, s)
	}
	if s := hexField("pubname set", l.PubnameSet); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ") + ": "
}

// HexRange formats a byte range the way spec.md §6 requires: "0xHEX..0xHEX".
func HexRange(begin, end uint64) string {
	return fmt.Sprintf("0x%x..0x%x", begin, end)
}

// Message is one filtered, fully rendered diagnostic.
type Message struct {
	Category Category
	Severity string // "error" or "warning"
	Text     string
}

// Reporter filters and emits diagnostics, and tracks the error count the
// process exit code is derived from.
type Reporter struct {
	Accept Category
	Reject Category

	out        io.Writer
	errorCount int
	quiet      bool

	colorError   func(string) string
	colorWarning func(string) string
}

// New creates a reporter with spec.md §4.H's default masks, writing
// accepted messages to w.
func New(w io.Writer) *Reporter {
	return &Reporter{
		Accept:       DefaultAccept,
		Reject:       DefaultReject,
		out:          w,
		colorError:   identity,
		colorWarning: identity,
	}
}

func identity(s string) string { return s }

// SetColorizers installs formatting functions applied to the "error:" /
// "warning:" prefix, letting the CLI layer opt into ANSI color without this
// package depending on a color library itself.
func (r *Reporter) SetColorizers(errorColor, warningColor func(string) string) {
	if errorColor != nil {
		r.colorError = errorColor
	}
	if warningColor != nil {
		r.colorWarning = warningColor
	}
}

// SetQuiet suppresses nothing here; it only affects whether the command in
// package cmd prints its per-file "no errors" and "skipped missing sections"
// lines (spec.md §6, -q/--quiet).
func (r *Reporter) SetQuiet(q bool) { r.quiet = q }

// Quiet reports the current -q/--quiet setting.
func (r *Reporter) Quiet() bool { return r.quiet }

// Accepts reports whether cat would pass the current accept/reject masks.
func (r *Reporter) Accepts(cat Category) bool {
	return (r.Accept&cat) != 0 && (r.Reject&cat) == 0
}

// ErrorCount returns the number of reported messages classified as errors.
func (r *Reporter) ErrorCount() int { return r.errorCount }

// Reportf files a diagnostic if the filter accepts its category. format/args
// are rendered with fmt.Sprintf; a malformed format verb (surfaced by Go's
// fmt package as a "%!" escape in the output) falls back to a literal
// "(fmt error)" placeholder, mirroring the vasprintf-failure contract of
// spec.md §6.
func (r *Reporter) Reportf(cat Category, loc Loc, format string, args ...any) {
	if !r.Accepts(cat) {
		return
	}

	body := safeSprintf(format, args...)
	severity := "warning"
	colorize := r.colorWarning
	if cat&ErrorFlag != 0 && cat&Impact4 != 0 {
		severity = "error"
		colorize = r.colorError
		r.errorCount++
	}

	line := fmt.Sprintf("%s%s: %s", loc.String(), colorize(severity), body)
	fmt.Fprintln(r.out, line)
}

func safeSprintf(format string, args ...any) string {
	out := fmt.Sprintf(format, args...)
	if strings.Contains(out, "%!") {
		return "(fmt error)"
	}
	return out
}
