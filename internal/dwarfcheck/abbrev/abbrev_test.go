package abbrev

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
	"github.com/stretchr/testify/assert"
)

// abbrev 1: DW_TAG_compile_unit (0x11), has children, DW_AT_name (0x03)/DW_FORM_string (0x08)
// terminator (0,0), then table terminator 0.
func minimalAbbrevSection() []byte {
	return []byte{
		0x01,       // abbrev code 1
		0x11,       // tag DW_TAG_compile_unit
		0x01,       // has_children = yes
		0x03, 0x08, // DW_AT_name, DW_FORM_string
		0x00, 0x00, // end of attribute list
		0x00, // end of table
	}
}

func TestLoadSingleTable(t *testing.T) {
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(minimalAbbrevSection(), binary.LittleEndian)

	chain := Load(r, rep)
	tables := chain.Tables()
	assert.Len(t, tables, 1)
	assert.Equal(t, uint64(0), tables[0].SectionOffset)
	assert.Len(t, tables[0].Abbrevs, 1)
	assert.Equal(t, uint64(1), tables[0].Abbrevs[0].Code)
	assert.True(t, tables[0].Abbrevs[0].HasChildren)
	assert.Empty(t, buf.String())
}

func TestLookupFindsByCode(t *testing.T) {
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(minimalAbbrevSection(), binary.LittleEndian)
	chain := Load(r, rep)

	table := chain.Lookup(0)
	assert.NotNil(t, table)
	ab := table.Lookup(1)
	assert.NotNil(t, ab)
	assert.Nil(t, table.Lookup(2))
}

func TestZeroPaddingRunIsReportedAsBloat(t *testing.T) {
	data := append(minimalAbbrevSection(), 0x00, 0x00, 0x00) // three extra zero codes
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(data, binary.LittleEndian)
	Load(r, rep)

	assert.Contains(t, buf.String(), "zero-padding in abbrev section")
}

func TestDuplicateSiblingAttributeIsError(t *testing.T) {
	data := []byte{
		0x01,       // code
		0x11,       // tag
		0x01,       // has_children
		0x01, 0x13, // DW_AT_sibling, DW_FORM_ref4
		0x01, 0x13, // DW_AT_sibling again, DW_FORM_ref4
		0x00, 0x00, // end attrs
		0x00, // end table
	}
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(data, binary.LittleEndian)
	Load(r, rep)

	assert.Contains(t, buf.String(), "more than once")
}

func TestSiblingOnLeafAbbrevIsBloat(t *testing.T) {
	data := []byte{
		0x01,       // code
		0x11,       // tag
		0x00,       // has_children = no
		0x01, 0x13, // DW_AT_sibling, DW_FORM_ref4
		0x00, 0x00,
		0x00,
	}
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(data, binary.LittleEndian)
	Load(r, rep)

	assert.Contains(t, buf.String(), "no children")
}

func TestUnusedAbbrevCodeTwoInReportedLater(t *testing.T) {
	data := []byte{
		0x01, 0x11, 0x00, 0x00, 0x00, // abbrev 1, no children, no attrs
		0x02, 0x24, 0x00, 0x00, 0x00, // abbrev 2, no children, no attrs
		0x00, // end table
	}
	var buf bytes.Buffer
	rep := diag.New(&buf)
	r := reader.New(data, binary.LittleEndian)
	chain := Load(r, rep)

	table := chain.Lookup(0)
	assert.Len(t, table.Abbrevs, 2)
	assert.False(t, table.Abbrevs[0].Used)
	assert.False(t, table.Abbrevs[1].Used)
}
