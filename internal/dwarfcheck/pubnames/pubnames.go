// Package pubnames validates .debug_pubnames (spec.md §4.G): set headers,
// the covered-length cross-check against the named CU, and name/DIE-offset
// pair resolution.
package pubnames

import (
	"encoding/binary"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
)

const section = ".debug_pubnames"

// CUInfo is the subset of a parsed CU that the pubnames checker needs to
// cross-reference a set against. A plain struct with a function field, so
// this package does not import dwinfo's concrete CU type.
type CUInfo struct {
	TotalLength uint64
	HasDIE      func(absOffset uint64) bool
}

// CULookup resolves a .debug_info offset to its CU, or reports ok=false if
// no such CU was parsed.
type CULookup func(offset uint64) (CUInfo, bool)

// Check validates every set in data, reporting violations through rep.
func Check(data []byte, ord binary.ByteOrder, lookupCU CULookup, rep *diag.Reporter) {
	r := reader.New(data, ord)

	for !r.AtEnd() {
		setStart := uint64(r.Pos())
		loc := diag.Loc{Section: section, PubnameSet: &setStart}

		length, dwarf64, status := r.ReadInitialLength()
		if status == reader.InitialLengthTruncated {
			break
		}
		if status == reader.InitialLengthReservedEscape {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "unrecognized length escape")
			break
		}

		lengthFieldSize := 4
		if dwarf64 {
			lengthFieldSize = 12
		}
		setEnd := int(setStart) + lengthFieldSize + int(length)
		if setEnd > len(data) || setEnd < r.Pos() {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "set length runs past the end of .debug_pubnames")
			break
		}
		sub := r.Sub(r.Pos(), setEnd)

		// Version is read raw, with no gate (spec.md §4.G).
		if _, ok := sub.ReadU16(); !ok {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "truncated version field")
			r.Reset(setEnd)
			continue
		}

		cuOffset, ok := sub.ReadOffset(dwarf64)
		if !ok {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "truncated CU offset field")
			r.Reset(setEnd)
			continue
		}

		coveredLength, ok := sub.ReadOffset(dwarf64)
		if !ok {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "truncated covered-length field")
			r.Reset(setEnd)
			continue
		}

		cu, found := lookupCU(cuOffset)
		if !found {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "pubnames set refers to unknown CU at 0x%x", cuOffset)
		} else if coveredLength != cu.TotalLength {
			rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc,
				"the set covers length %d but CU has length %d", coveredLength, cu.TotalLength)
		}

		for {
			dieOffset, readOK := sub.ReadOffset(dwarf64)
			if !readOK {
				rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "truncated die offset in pubnames pair")
				break
			}
			if dieOffset == 0 {
				break
			}
			name, readOK := sub.ReadCString()
			if !readOK {
				rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "truncated name in pubnames pair")
				break
			}

			if found && !cu.HasDIE(cuOffset+dieOffset) {
				rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc,
					"pubnames entry %q refers to a DIE outside its CU: 0x%x", name, dieOffset)
			}
		}

		if sub.Len() > 0 {
			checkTrailingBytes(sub, loc, rep)
		}

		r.Reset(setEnd)
	}
}

func checkTrailingBytes(r *reader.Reader, loc diag.Loc, rep *diag.Reporter) {
	start := r.Offset()
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
		rep.Reportf(diag.AreaPubnames|diag.Bloat|diag.Impact1, loc, "trailing zero padding at 0x%x", start)
	} else {
		rep.Reportf(diag.AreaPubnames|diag.ErrorFlag|diag.Impact4, loc, "unreferenced non-zero bytes at 0x%x", start)
	}
}
