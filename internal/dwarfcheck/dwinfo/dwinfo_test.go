package dwinfo

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/abbrev"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
	"github.com/stretchr/testify/assert"
)

// buildAbbrevChain parses a minimal .debug_abbrev with two abbrevs:
// code 1: DW_TAG_compile_unit, has children, DW_AT_sibling/ref4
// code 2: DW_TAG_base_type, no children, no attributes
func buildAbbrevChain(t *testing.T) *abbrev.Chain {
	t.Helper()
	data := []byte{
		0x01, 0x11, 0x01, // code 1, tag compile_unit, has children
		0x01, 0x13, // DW_AT_sibling, DW_FORM_ref4
		0x00, 0x00, // end attrs
		0x02, 0x24, 0x00, // code 2, tag base_type, no children
		0x00, 0x00, // end attrs
		0x00, // end table
	}
	rep := diag.New(&bytes.Buffer{})
	return abbrev.Load(reader.New(data, binary.LittleEndian), rep)
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// buildCU assembles a minimal well-formed CU body: header + one
// has-children DIE (code 1) whose DW_AT_sibling points at the next DIE on
// the same level, its child DIE (code 2) and the child chain's terminator,
// then that next top-level DIE (code 2), followed by the terminator.
//
// DW_AT_sibling and every other CU-relative reference form are measured
// from the first byte of the CU header, i.e. including the 4-byte initial
// length field that precedes "version" below (spec.md §3/§4.E), not from
// this function's own body slice.
func buildCU(t *testing.T, siblingTarget uint32) []byte {
	t.Helper()
	var body []byte
	body = append(body, 0x02, 0x00) // version 2
	body = append(body, u32le(0)...)
	body = append(body, 4) // address size

	// DIE at CU-relative offset 11 (4 length + 2 version + 4 abbrev offset + 1 addrsize = 11)
	body = append(body, 0x01)                    // abbrev code 1
	body = append(body, u32le(siblingTarget)...) // DW_AT_sibling value (CU-relative offset)
	body = append(body, 0x02)                    // child DIE: abbrev code 2
	body = append(body, 0x00)                    // end of code-1's children
	body = append(body, 0x02)                    // next top-level DIE: abbrev code 2
	body = append(body, 0x00)                    // end of top-level chain

	length := uint32(len(body))
	var out []byte
	out = append(out, u32le(length)...)
	out = append(out, body...)
	return out
}

func TestWellFormedCUProducesNoDiagnostics(t *testing.T) {
	chain := buildAbbrevChain(t)
	// DIE at CU-relative offset 11 is the compile_unit; its only child
	// (code 2) starts at offset 16 (11 + 1 code byte + 4 sibling bytes),
	// the child chain's terminator is at 17, and the compile_unit's sibling
	// starts at offset 18.
	data := buildCU(t, 18)

	var buf bytes.Buffer
	rep := diag.New(&buf)
	cus := Check(data, binary.LittleEndian, chain, nil, nil, rep)

	assert.Len(t, cus, 1)
	assert.Empty(t, buf.String())
	assert.Equal(t, 0, rep.ErrorCount())
}

func TestSiblingMismatchReportsError(t *testing.T) {
	chain := buildAbbrevChain(t)
	data := buildCU(t, 0x40) // wrong sibling target

	var buf bytes.Buffer
	rep := diag.New(&buf)
	Check(data, binary.LittleEndian, chain, nil, nil, rep)

	assert.Contains(t, buf.String(), "should have had its sibling at 0x40")
}

func TestDanglingLocalReferenceOutsideCU(t *testing.T) {
	// Abbrev: code 1, no children, one DW_AT_type/ref4 attribute.
	abbrevData := []byte{
		0x01, 0x24, 0x00, // code 1, tag base_type, no children
		0x49, 0x13, // DW_AT_type (0x49), DW_FORM_ref4
		0x00, 0x00,
		0x00,
	}
	rep0 := diag.New(&bytes.Buffer{})
	chain := abbrev.Load(reader.New(abbrevData, binary.LittleEndian), rep0)

	var body []byte
	body = append(body, 0x02, 0x00)
	body = append(body, u32le(0)...)
	body = append(body, 4)
	body = append(body, 0x01)                    // abbrev code 1
	body = append(body, u32le(0x1000)...)        // ref4 value way out of range
	body = append(body, 0x00)                    // terminator

	length := uint32(len(body))
	var data []byte
	data = append(data, u32le(length)...)
	data = append(data, body...)

	var buf bytes.Buffer
	rep := diag.New(&buf)
	Check(data, binary.LittleEndian, chain, nil, nil, rep)

	assert.Contains(t, buf.String(), "invalid reference outside the CU: 0x1000")
}

func TestUnknownAbbrevCodeIsFatalForCU(t *testing.T) {
	chain := buildAbbrevChain(t)

	var body []byte
	body = append(body, 0x02, 0x00)
	body = append(body, u32le(0)...)
	body = append(body, 4)
	body = append(body, 0x09) // unknown code
	body = append(body, 0x00)

	length := uint32(len(body))
	var data []byte
	data = append(data, u32le(length)...)
	data = append(data, body...)

	var buf bytes.Buffer
	rep := diag.New(&buf)
	cus := Check(data, binary.LittleEndian, chain, nil, nil, rep)

	assert.Contains(t, buf.String(), "unknown abbreviation code 9")
	assert.Empty(t, cus, "a fatal CU contributes nothing downstream")
}
