package aranges

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/stretchr/testify/assert"
)

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// buildTable assembles one well-formed aranges table using 4-byte addresses
// (tuple size 8). The post-length header (version + CU offset + address
// size + segment size = 8 bytes) plus the 4-byte initial length field
// itself puts the first tuple 12 bytes into the table, which is not a
// multiple of 8, so a 4-byte pad always precedes it.
func buildTable(t *testing.T, pad [4]byte) []byte {
	t.Helper()
	var body []byte
	body = append(body, 0x02, 0x00) // version 2
	body = append(body, u32le(0)...)
	body = append(body, 4) // address size
	body = append(body, 0) // segment size
	body = append(body, pad[:]...)
	body = append(body, u32le(0x1000)...) // tuple address
	body = append(body, u32le(0x20)...)   // tuple length
	body = append(body, u32le(0)...)      // terminator address
	body = append(body, u32le(0)...)      // terminator length

	length := uint32(len(body))
	var out []byte
	out = append(out, u32le(length)...)
	out = append(out, body...)
	return out
}

func TestWellFormedArangesTableProducesNoDiagnostics(t *testing.T) {
	data := buildTable(t, [4]byte{})
	hasCU := func(offset uint64) bool { return offset == 0 }

	var buf bytes.Buffer
	rep := diag.New(&buf)
	Check(data, binary.LittleEndian, hasCU, rep)

	assert.Empty(t, buf.String())
}

func TestNonZeroPaddingByteIsReported(t *testing.T) {
	data := buildTable(t, [4]byte{0, 0, 0xAB, 0})
	hasCU := func(offset uint64) bool { return offset == 0 }

	var buf bytes.Buffer
	rep := diag.New(&buf)
	Check(data, binary.LittleEndian, hasCU, rep)

	// Padding starts at table offset 0xC (4-byte length + 8-byte header);
	// the injected non-zero byte is the third pad byte, at 0xE.
	assert.Contains(t, buf.String(), "non-zero byte at 0xe in padding before the first entry")
}

func TestUnknownCUOffsetIsError(t *testing.T) {
	data := buildTable(t, [4]byte{})
	hasCU := func(offset uint64) bool { return false }

	var buf bytes.Buffer
	rep := diag.New(&buf)
	Check(data, binary.LittleEndian, hasCU, rep)

	assert.Contains(t, buf.String(), "refers to unknown CU")
}
