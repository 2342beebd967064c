// Package xref implements the cross-reference resolver (spec.md §4.I): once
// every CU in .debug_info has been parsed, it resolves each CU's outgoing
// global references against the full CU list.
package xref

import (
	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/dwinfo"
)

const section = ".debug_info"

// Resolve walks every CU's OutgoingRefs, reporting unresolved targets as
// errors and same-CU references formed through ref_addr (which could have
// used a cheaper local form) as suboptimal.
func Resolve(cus []*dwinfo.CU, rep *diag.Reporter) {
	for _, cu := range cus {
		for _, ref := range cu.OutgoingRefs.All() {
			owner := findOwner(cus, ref.Target)
			loc := diag.Loc{Section: section, CU: &cu.SectionOffset}

			if owner == nil {
				rep.Reportf(diag.AreaDieRelRef|diag.ErrorFlag|diag.Impact4, loc,
					"unresolved global reference to 0x%x", ref.Target)
				continue
			}
			if owner == cu {
				rep.Reportf(diag.AreaDieRelRef|diag.Suboptimal|diag.Impact1, loc,
					"reference to 0x%x uses DW_FORM_ref_addr but targets its own CU", ref.Target)
			}
		}
	}
}

func findOwner(cus []*dwinfo.CU, target uint64) *dwinfo.CU {
	for _, cu := range cus {
		if cu.DieAddresses.Has(target) {
			return cu
		}
	}
	return nil
}
