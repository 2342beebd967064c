// Package dwinfo implements the DIE walker and attribute decoder: the heart
// of the checker (spec.md §4.E). It decodes .debug_info CU by CU using a
// previously loaded abbreviation chain, recording DIE addresses, CU-local
// and cross-CU references, and string-table coverage as it goes.
package dwinfo

import (
	"encoding/binary"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/abbrev"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/coverage"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/dwconst"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/records"
)

// CU describes one parsed compilation unit (spec.md §3 "CU descriptor").
type CU struct {
	SectionOffset uint64
	TotalLength   uint64 // including the length field itself
	DieAddresses  *records.AddrSet
	// OutgoingRefs holds global (DW_FORM_ref_addr) references: target is an
	// absolute .debug_info offset that may land in a different CU,
	// resolved later by the xref package.
	OutgoingRefs *records.RefList

	AddressSize int
	Version     uint16
}

const section = ".debug_info"

// Check decodes every CU in data, reporting violations through rep. It
// returns the CU descriptors it managed to build; a CU whose header is
// unrecoverable contributes nothing but does not stop the remaining CUs
// from being attempted, except when the length-prefix escape itself is
// unreadable or the length runs past the end of the section, either of which
// is fatal to the rest of the section (there is no way to locate the next CU
// without a valid length).
func Check(data []byte, ord binary.ByteOrder, abbrevChain *abbrev.Chain, strs []byte, strCoverage *coverage.Set, rep *diag.Reporter) []*CU {
	r := reader.New(data, ord)
	var cus []*CU

	for !r.AtEnd() {
		cuStart := r.Pos()
		length, dwarf64, status := r.ReadInitialLength()
		if status == reader.InitialLengthTruncated {
			break
		}
		if status == reader.InitialLengthReservedEscape {
			cu := uint64(cuStart)
			rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: section, CU: &cu},
				"unrecognized length escape at CU header")
			break
		}

		lengthFieldSize := 4
		if dwarf64 {
			lengthFieldSize = 12
		}
		totalLength := uint64(lengthFieldSize) + length
		cuEnd := cuStart + int(totalLength)
		if cuEnd > len(data) {
			cu := uint64(cuStart)
			rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: section, CU: &cu},
				"CU length 0x%x runs past the end of .debug_info", length)
			break
		}

		sub := r.Sub(r.Pos(), cuEnd)
		cuOffset := uint64(cuStart)

		cu := parseOneCU(sub, cuOffset, totalLength, dwarf64, abbrevChain, strs, strCoverage, rep)
		if cu != nil {
			cus = append(cus, cu)
		}

		r.Reset(cuEnd)
	}

	return cus
}

func parseOneCU(
	sub *reader.Reader,
	cuOffset uint64,
	totalLength uint64,
	dwarf64 bool,
	abbrevChain *abbrev.Chain,
	strs []byte,
	strCoverage *coverage.Set,
	rep *diag.Reporter,
) *CU {
	loc := diag.Loc{Section: section, CU: &cuOffset}

	version, ok := sub.ReadU16()
	if !ok {
		rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, loc, "truncated CU version field")
		return nil
	}
	switch reader.CheckVersionGate(version) {
	case reader.VersionTooLow:
		rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, loc, "DWARF version %d is too low (need 2 or 3)", version)
		return nil
	case reader.VersionTooHigh:
		rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, loc, "DWARF version %d is too high (need 2 or 3)", version)
		return nil
	}
	if version == 2 && dwarf64 {
		rep.Reportf(diag.AreaDieOther|diag.Impact2, loc, "DWARF version 2 combined with the 64-bit format is unusual")
	}

	abbrevOffset, ok := sub.ReadOffset(dwarf64)
	if !ok {
		rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, loc, "truncated abbrev offset field")
		return nil
	}

	addrSize, ok := sub.ReadU8()
	if !ok || (addrSize != 4 && addrSize != 8) {
		rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, loc, "invalid address size %d", addrSize)
		return nil
	}

	table := abbrevChain.Lookup(abbrevOffset)
	if table == nil {
		rep.Reportf(diag.AreaAbbrevs|diag.ErrorFlag|diag.Impact4, loc, "no abbrev table at offset 0x%x", abbrevOffset)
		return nil
	}

	cu := &CU{
		SectionOffset: cuOffset,
		TotalLength:   totalLength,
		DieAddresses:  records.NewAddrSet(),
		OutgoingRefs:  records.NewRefList(),
		AddressSize:   int(addrSize),
		Version:       version,
	}

	lengthFieldSize := 4
	if dwarf64 {
		lengthFieldSize = 12
	}

	w := &walker{
		sub:             sub,
		cu:              cu,
		table:           table,
		strs:            strs,
		strCoverage:     strCoverage,
		dwarf64:         dwarf64,
		addrSize:        int(addrSize),
		lengthFieldSize: lengthFieldSize,
		rep:             rep,
	}

	if _, ok := w.walkChain(); !ok {
		return nil
	}

	for i := range table.Abbrevs {
		if !table.Abbrevs[i].Used {
			ab := table.Abbrevs[i]
			code := ab.Code
			rep.Reportf(diag.AreaAbbrevs|diag.Bloat|diag.Impact2, diag.Loc{Section: ".debug_abbrev"},
				"abbreviation with code %d is never used", code)
		}
	}

	for _, target := range w.localRefs {
		if !cu.DieAddresses.Has(target) {
			rep.Reportf(diag.AreaDieRelRef|diag.ErrorFlag|diag.Impact4, loc,
				"invalid reference outside the CU: 0x%x", target-cu.SectionOffset)
		}
	}

	return cu
}

// walker carries the mutable state threaded through one CU's recursive DIE
// chain decode.
type walker struct {
	sub         *reader.Reader
	cu          *CU
	table       *abbrev.Table
	strs        []byte
	strCoverage *coverage.Set
	dwarf64     bool
	addrSize    int
	rep         *diag.Reporter

	// lengthFieldSize is the width of the CU's own initial length field (4
	// for DWARF32, 12 for DWARF64). DWARF measures both CU-local reference
	// forms and DW_AT_sibling values from the first byte of the CU header,
	// i.e. including this field, while sub is positioned just past it — so
	// every CU-relative offset derived from sub.Offset() must add this back
	// in before it is comparable to a raw reference value or stored as a
	// real section offset.
	lengthFieldSize int

	// localRefs accumulates (cu.SectionOffset + raw value) targets for
	// local reference forms; validated against cu.DieAddresses once the
	// whole CU has been walked (spec.md §4.E "Post-CU").
	localRefs []uint64
}

// walkChain decodes one sibling-list level. It returns -1 on a fatal
// failure that should abandon the CU, 0 if the chain held only the
// terminating zero, and 1 if at least one DIE was decoded.
func (w *walker) walkChain() (int, bool) {
	var siblingAddr uint64
	siblingSet := false
	prevHadChildrenNoSibling := false
	count := 0

	for {
		// dieOff is CU-header-relative (matches the basis of raw reference
		// form values and DW_AT_sibling); absOff is the true section offset.
		dieOff := uint64(w.lengthFieldSize) + uint64(w.sub.Offset())
		absOff := w.cu.SectionOffset + dieOff
		loc := diag.Loc{Section: section, CU: &w.cu.SectionOffset, DIE: &absOff}

		codeOffset := w.sub.Offset()
		code, status := w.sub.ReadULEB128()
		hitEnd := status == reader.LEBFatal

		if siblingSet {
			switch {
			case hitEnd:
				w.rep.Reportf(diag.AreaDieRelSibling|diag.ErrorFlag|diag.Impact4, loc,
					"sibling should have been at 0x%x but the chain ended", siblingAddr)
			case code == 0:
				w.rep.Reportf(diag.AreaDieRelSibling|diag.ErrorFlag|diag.Impact4, loc,
					"last sibling has DW_AT_sibling")
			case siblingAddr != dieOff:
				w.rep.Reportf(diag.AreaDieRelSibling|diag.ErrorFlag|diag.Impact4, loc,
					"this DIE should have had its sibling at 0x%x, but it's at 0x%x instead", siblingAddr, dieOff)
			}
			siblingSet = false
		}

		if prevHadChildrenNoSibling {
			w.rep.Reportf(diag.AreaDieRelChild|diag.Suboptimal|diag.Impact1, loc,
				"DIE with children does not supply DW_AT_sibling")
			prevHadChildrenNoSibling = false
		}

		if hitEnd {
			w.rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: section, CU: &w.cu.SectionOffset},
				"DIE chain at 0x%x ended without a zero terminator", codeOffset)
			break
		}
		if code == 0 {
			break
		}

		ab := w.table.Lookup(code)
		if ab == nil {
			w.rep.Reportf(diag.AreaAbbrevs|diag.ErrorFlag|diag.Impact4, loc,
				"unknown abbreviation code %d", code)
			return -1, false
		}
		ab.Used = true
		w.cu.DieAddresses.Add(absOff)
		count++

		sibVal, hasSibling := w.decodeAttributes(ab, absOff)
		if hasSibling {
			siblingAddr = sibVal
			siblingSet = true
		}
		if ab.HasChildren && !hasSibling {
			prevHadChildrenNoSibling = true
		}

		if ab.HasChildren {
			childCount, ok := w.walkChain()
			if !ok {
				return -1, false
			}
			if childCount == 0 {
				w.rep.Reportf(diag.AreaDieOther|diag.Suboptimal|diag.Impact1, loc,
					"DIE declares children but its chain is empty")
			}
		}
	}

	if count == 0 {
		return 0, true
	}
	return 1, true
}

// decodeAttributes decodes every attribute of ab at the DIE starting at
// dieAbsOff, returning the raw value that should latch as a sibling target
// plus whether one was found.
func (w *walker) decodeAttributes(ab *abbrev.Abbrev, dieAbsOff uint64) (uint64, bool) {
	var siblingVal uint64
	var siblingFound bool

	for i := range ab.Attributes {
		attr := ab.Attributes[i]
		raw, hasRaw, refTarget, hasRef, isLocalRef, ok := w.decodeForm(attr.Form, dieAbsOff)
		if !ok {
			continue
		}

		if hasRef {
			if isLocalRef {
				w.recordLocalRef(refTarget)
			} else {
				w.cu.OutgoingRefs.Add(refTarget, dieAbsOff)
			}
		}

		if attr.Name == dwconst.AttrSibling && hasRaw {
			siblingVal = raw
			siblingFound = true
		}
	}

	return siblingVal, siblingFound
}

func (w *walker) recordLocalRef(rawValue uint64) {
	// rawValue is CU-header-relative, same basis as cu.TotalLength (which
	// includes the initial length field), so it's the direct bound here.
	if rawValue >= w.cu.TotalLength {
		loc := diag.Loc{Section: section, CU: &w.cu.SectionOffset}
		w.rep.Reportf(diag.AreaDieRelRef|diag.ErrorFlag|diag.Impact4, loc,
			"invalid reference outside the CU: 0x%x", rawValue)
		return
	}
	w.localRefs = append(w.localRefs, w.cu.SectionOffset+rawValue)
}

// decodeForm consumes one attribute value per the form table in spec.md
// §4.E, returning:
//   - raw/hasRaw: the decoded scalar value, when the form produces one
//     directly comparable to a CU-local DIE offset (sibling eligibility).
//   - refTarget/hasRef/isLocalRef: reference bookkeeping for ref-class forms.
//   - ok: false if the read failed (truncation), in which case nothing
//     further in this DIE's attribute list can be trusted.
func (w *walker) decodeForm(form dwconst.Form, dieAbsOff uint64) (raw uint64, hasRaw bool, refTarget uint64, hasRef bool, isLocalRef bool, ok bool) {
	switch form {
	case dwconst.FormIndirect:
		realForm, status := w.sub.ReadULEB128()
		if status == reader.LEBFatal {
			return 0, false, 0, false, false, false
		}
		if dwconst.Form(realForm) == dwconst.FormIndirect {
			w.rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: section, CU: &w.cu.SectionOffset},
				"DW_FORM_indirect must not resolve to itself")
			return 0, false, 0, false, false, false
		}
		return w.decodeForm(dwconst.Form(realForm), dieAbsOff)

	case dwconst.FormStrp:
		off, readOK := w.sub.ReadOffset(w.dwarf64)
		if !readOK {
			return 0, false, 0, false, false, false
		}
		w.recordStrp(off)
		return 0, false, 0, false, false, true

	case dwconst.FormString:
		_, readOK := w.sub.ReadCString()
		return 0, false, 0, false, false, readOK

	case dwconst.FormAddr, dwconst.FormRefAddr:
		width := 4
		if w.addrSize == 8 {
			width = 8
		}
		v, readOK := w.sub.ReadVar(width)
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return v, dwconst.SiblingEligible(form), v, dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormUdata, dwconst.FormRefUdata:
		v, status := w.sub.ReadULEB128()
		if status == reader.LEBFatal {
			return 0, false, 0, false, false, false
		}
		return v, dwconst.SiblingEligible(form), v, dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormFlag, dwconst.FormData1, dwconst.FormRef1:
		v, readOK := w.sub.ReadU8()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return uint64(v), dwconst.SiblingEligible(form), uint64(v), dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormData2, dwconst.FormRef2:
		v, readOK := w.sub.ReadU16()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return uint64(v), dwconst.SiblingEligible(form), uint64(v), dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormData4, dwconst.FormRef4:
		v, readOK := w.sub.ReadU32()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return uint64(v), dwconst.SiblingEligible(form), uint64(v), dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormData8, dwconst.FormRef8:
		v, readOK := w.sub.ReadU64()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return v, dwconst.SiblingEligible(form), v, dwconst.IsRefForm(form), dwconst.IsLocalRefForm(form), true

	case dwconst.FormSdata:
		_, status := w.sub.ReadSLEB128()
		return 0, false, 0, false, false, status != reader.LEBFatal

	case dwconst.FormBlock:
		n, status := w.sub.ReadULEB128()
		if status == reader.LEBFatal {
			return 0, false, 0, false, false, false
		}
		return 0, false, 0, false, false, w.sub.Skip(int(n))

	case dwconst.FormBlock1:
		n, readOK := w.sub.ReadU8()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return 0, false, 0, false, false, w.sub.Skip(int(n))

	case dwconst.FormBlock2:
		n, readOK := w.sub.ReadU16()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return 0, false, 0, false, false, w.sub.Skip(int(n))

	case dwconst.FormBlock4:
		n, readOK := w.sub.ReadU32()
		if !readOK {
			return 0, false, 0, false, false, false
		}
		return 0, false, 0, false, false, w.sub.Skip(int(n))

	default:
		w.rep.Reportf(diag.AreaDieOther|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: section, CU: &w.cu.SectionOffset},
			"unhandled attribute form 0x%x", form)
		return 0, false, 0, false, false, false
	}
}

func (w *walker) recordStrp(offset uint64) {
	loc := diag.Loc{Section: section, CU: &w.cu.SectionOffset}
	if w.strs == nil {
		w.rep.Reportf(diag.AreaStrings|diag.ErrorFlag|diag.Impact4, loc, "DW_FORM_strp used but .debug_str is missing")
		return
	}
	if offset >= uint64(len(w.strs)) {
		w.rep.Reportf(diag.AreaStrings|diag.ErrorFlag|diag.Impact4, loc, "strp offset 0x%x is outside .debug_str", offset)
		return
	}
	end := offset
	for end < uint64(len(w.strs)) && w.strs[end] != 0 {
		end++
	}
	if w.strCoverage != nil {
		w.strCoverage.Add(int(offset), int(end))
	}
}
