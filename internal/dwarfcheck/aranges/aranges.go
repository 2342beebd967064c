// Package aranges validates .debug_aranges (spec.md §4.F): header shape,
// tuple alignment and padding, and cross-references back to the CU list
// produced by the dwinfo package.
package aranges

import (
	"encoding/binary"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
)

const section = ".debug_aranges"

// CULookup reports whether a .debug_info offset is the start of a known CU,
// so the aranges checker can validate the back-reference without depending
// on the dwinfo package's concrete CU type.
type CULookup func(offset uint64) bool

// Check validates every table in data, reporting violations through rep.
// hasCU reports whether a given .debug_info offset names a known CU.
func Check(data []byte, ord binary.ByteOrder, hasCU CULookup, rep *diag.Reporter) {
	r := reader.New(data, ord)

	for !r.AtEnd() {
		tableStart := uint64(r.Pos())
		loc := diag.Loc{Section: section, ArangeTable: &tableStart}

		length, dwarf64, status := r.ReadInitialLength()
		if status == reader.InitialLengthTruncated {
			break
		}
		if status == reader.InitialLengthReservedEscape {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "unrecognized length escape")
			break
		}

		lengthFieldSize := 4
		if dwarf64 {
			lengthFieldSize = 12
		}
		tableEnd := int(tableStart) + lengthFieldSize + int(length)
		if tableEnd > len(data) || tableEnd < r.Pos() {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "table length runs past the end of .debug_aranges")
			break
		}
		sub := r.Sub(r.Pos(), tableEnd)

		version, ok := sub.ReadU16()
		if !ok {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "truncated version field")
			r.Reset(tableEnd)
			continue
		}
		// spec.md §9 Open Question (a): the original tolerates version 3
		// here too, via the same gate used for CU headers.
		switch reader.CheckVersionGate(version) {
		case reader.VersionTooLow, reader.VersionTooHigh:
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "unsupported aranges version %d", version)
			r.Reset(tableEnd)
			continue
		}

		cuOffset, ok := sub.ReadOffset(dwarf64)
		if !ok {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "truncated CU offset field")
			r.Reset(tableEnd)
			continue
		}
		if !hasCU(cuOffset) {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "arange table refers to unknown CU at 0x%x", cuOffset)
		}

		addrSize, ok := sub.ReadU8()
		if !ok || (addrSize != 2 && addrSize != 4 && addrSize != 8) {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "invalid address size %d", addrSize)
			r.Reset(tableEnd)
			continue
		}

		segSize, ok := sub.ReadU8()
		if !ok {
			rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "truncated segment size field")
			r.Reset(tableEnd)
			continue
		}
		if segSize != 0 {
			rep.Reportf(diag.AreaAranges|diag.Impact2, loc, "non-zero segment selector size %d is not supported", segSize)
			r.Reset(tableEnd)
			continue
		}

		// Tuples are aligned to a 2*address_size boundary measured from the
		// start of the set, i.e. including the initial length field itself
		// (spec.md §4.F), not from this post-length sub-reader's own start.
		tupleSize := 2 * int(addrSize)
		padBegin := lengthFieldSize + sub.Offset()
		if remainder := padBegin % tupleSize; remainder != 0 {
			padLen := tupleSize - remainder
			checkPadding(sub, lengthFieldSize, padLen, loc, rep)
		}

		for {
			if sub.Len() < tupleSize {
				break
			}
			addr, _ := sub.ReadVar(int(addrSize))
			length, _ := sub.ReadVar(int(addrSize))
			if addr == 0 && length == 0 {
				break
			}
		}

		if sub.Len() > 0 {
			checkTrailingBytes(sub, lengthFieldSize, loc, rep)
		}

		r.Reset(tableEnd)
	}
}

// checkPadding consumes n padding bytes, reporting every non-zero one found
// (spec.md §4.F: "every padding byte must be zero, else impact-2 note").
// base biases the reported offset back to the table start (r is a sub-reader
// positioned past the initial length field).
func checkPadding(r *reader.Reader, base, n int, loc diag.Loc, rep *diag.Reporter) {
	for i := 0; i < n; i++ {
		offset := base + r.Offset()
		b, ok := r.ReadU8()
		if !ok {
			return
		}
		if b != 0 {
			rep.Reportf(diag.AreaAranges|diag.Impact2, loc, "non-zero byte at 0x%x in padding before the first entry", offset)
		}
	}
}

// checkTrailingBytes reports the remaining bytes of the table as either
// zero-padding bloat or unreferenced non-zero bytes, matching the DIE
// chain's zero-padding-vs-error distinction (spec.md §4.A, §4.F). base
// biases the reported offset back to the table start, same as checkPadding.
func checkTrailingBytes(r *reader.Reader, base int, loc diag.Loc, rep *diag.Reporter) {
	start := base + r.Offset()
	allZero := true
	for !r.AtEnd() {
		b, ok := r.ReadU8()
		if !ok {
			break
		}
		if b != 0 {
			allZero = false
		}
	}
	if allZero {
		rep.Reportf(diag.AreaAranges|diag.Bloat|diag.Impact1, loc, "trailing zero padding at 0x%x", start)
	} else {
		rep.Reportf(diag.AreaAranges|diag.ErrorFlag|diag.Impact4, loc, "unreferenced non-zero bytes at 0x%x", start)
	}
}
