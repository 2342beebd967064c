package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAcceptRejectsStrings(t *testing.T) {
	r := New(&bytes.Buffer{})
	assert.False(t, r.Accepts(AreaStrings))
	assert.True(t, r.Accepts(AreaAbbrevs))
}

func TestReportfFiltersByAreaAndEmitsErrorSeverity(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Reportf(AreaStrings|Bloat|Impact3, Loc{Section: ".debug_str"}, "unused bytes")
	assert.Empty(t, buf.String(), "strings area rejected by default")

	r.Reportf(AreaAbbrevs|ErrorFlag|Impact4, Loc{Section: ".debug_abbrev"}, "bad tag %d", 7)
	assert.Contains(t, buf.String(), "error: bad tag 7")
	assert.Equal(t, 1, r.ErrorCount())
}

func TestAcceptAddingStringsArea(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Accept |= AreaStrings

	r.Reportf(AreaStrings|Suboptimal|Impact2, Loc{Section: ".debug_str"}, "hole")
	assert.Contains(t, buf.String(), "warning: hole")
}

func TestRejectMaskWins(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Reject |= Bloat

	r.Reportf(AreaAbbrevs|Bloat|Impact1, Loc{}, "zero padding")
	assert.Empty(t, buf.String())
}

func TestLocStringFormatsPositionalContext(t *testing.T) {
	cu := uint64(0x10)
	die := uint64(0x1c)
	loc := Loc{Section: ".debug_info", CU: &cu, DIE: &die}
	assert.Equal(t, ".debug_info, CU 0x10, DIE 0x1c: ", loc.String())
}

func TestMalformedFormatFallsBackToPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Reportf(AreaOther|Impact1, Loc{}, "%d", "not a number")
	assert.Contains(t, buf.String(), "(fmt error)")
}

func TestHexRange(t *testing.T) {
	assert.Equal(t, "0xe..0xf", HexRange(0x0e, 0x0f))
}
