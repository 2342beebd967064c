// Package driver is the scheduler spec.md §1 treats as an external
// collaborator: it wires the abbrev loader, DIE walker, cross-reference
// resolver, aranges checker and pubnames checker together for one file,
// per the control-flow paragraph of spec.md §2.
package driver

import (
	"github.com/core-explorer/elfutils/internal/dwarfcheck/abbrev"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/aranges"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/coverage"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/dwinfo"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/pubnames"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/xref"
	"github.com/core-explorer/elfutils/internal/elfsource"
)

// Result summarizes one file's check, for callers that want more than the
// reporter's error count (e.g. a future machine-readable output mode).
type Result struct {
	CUs             []*dwinfo.CU
	StringHoles     int
	MissingSections []string
}

// Check runs the full pipeline against one set of extracted ELF sections,
// reporting every diagnostic through rep. ignoreMissing mirrors the
// -i/--ignore-missing flag: when true, missing debug sections are not
// reported as errors. In both cases nothing past the section check runs
// unless .debug_abbrev and .debug_info are both present.
func Check(sections *elfsource.Sections, rep *diag.Reporter, ignoreMissing bool) Result {
	missing := sections.Missing()
	if len(missing) > 0 && !ignoreMissing {
		for _, name := range missing {
			rep.Reportf(diag.AreaELF|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: name},
				"required debug section is missing")
		}
	}

	result := Result{MissingSections: missing}

	if sections.DebugAbbrev == nil || sections.DebugInfo == nil {
		return result
	}

	abbrevChain := abbrev.Load(reader.New(sections.DebugAbbrev, sections.Order), rep)

	var strCoverage *coverage.Set
	if sections.DebugStr != nil {
		strCoverage = coverage.New(len(sections.DebugStr))
	}

	cus := dwinfo.Check(sections.DebugInfo, sections.Order, abbrevChain, sections.DebugStr, strCoverage, rep)
	result.CUs = cus

	xref.Resolve(cus, rep)

	if strCoverage != nil {
		for _, hole := range strCoverage.Holes() {
			result.StringHoles++
			rep.Reportf(diag.AreaStrings|diag.Bloat|diag.Impact2, diag.Loc{Section: ".debug_str"},
				"unreferenced string bytes in range %s", diag.HexRange(uint64(hole.Begin), uint64(hole.End)))
		}
	}

	if sections.DebugAranges != nil {
		aranges.Check(sections.DebugAranges, sections.Order, cuOffsetKnown(cus), rep)
	}

	if sections.DebugPubnames != nil {
		pubnames.Check(sections.DebugPubnames, sections.Order, lookupCU(cus), rep)
	}

	return result
}

func cuOffsetKnown(cus []*dwinfo.CU) aranges.CULookup {
	return func(offset uint64) bool {
		for _, cu := range cus {
			if cu.SectionOffset == offset {
				return true
			}
		}
		return false
	}
}

func lookupCU(cus []*dwinfo.CU) pubnames.CULookup {
	return func(offset uint64) (pubnames.CUInfo, bool) {
		for _, cu := range cus {
			if cu.SectionOffset == offset {
				return pubnames.CUInfo{
					TotalLength: cu.TotalLength,
					HasDIE:      cu.DieAddresses.Has,
				}, true
			}
		}
		return pubnames.CUInfo{}, false
	}
}
