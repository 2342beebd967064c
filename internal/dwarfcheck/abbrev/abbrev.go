// Package abbrev parses .debug_abbrev into a chain of abbreviation tables
// (spec.md §4.D). It never looks at .debug_info; its only job is to turn a
// reader over the raw abbrev bytes into tables the DIE walker can look
// abbrev codes up against.
package abbrev

import (
	"sort"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/dwconst"
	"github.com/core-explorer/elfutils/internal/dwarfcheck/reader"
)

// Attribute is one (name, form) pair declared by an abbrev.
type Attribute struct {
	Offset uint64 // position (within .debug_abbrev) where the name ULEB128 started
	Name   dwconst.Attr
	Form   dwconst.Form
}

// Abbrev is a single abbreviation: a tag, a children flag and its ordered
// attribute list.
type Abbrev struct {
	Code         uint64
	Tag          dwconst.Tag
	HasChildren  bool
	Attributes   []Attribute
	Used         bool
}

// Table is one abbreviation table, identified by the section offset of its
// first abbrev code. Tables form a singly linked chain in section order.
type Table struct {
	SectionOffset uint64
	Abbrevs       []Abbrev
	Next          *Table
}

// Lookup finds the abbrev with the given code via binary search (the
// loader guarantees abbrevs within a table are sorted by code).
func (t *Table) Lookup(code uint64) *Abbrev {
	i := sort.Search(len(t.Abbrevs), func(i int) bool {
		return t.Abbrevs[i].Code >= code
	})
	if i < len(t.Abbrevs) && t.Abbrevs[i].Code == code {
		return &t.Abbrevs[i]
	}
	return nil
}

// Chain is the full set of abbrev tables parsed from .debug_abbrev.
type Chain struct {
	head *Table
}

// Lookup finds the table whose SectionOffset matches exactly.
func (c *Chain) Lookup(sectionOffset uint64) *Table {
	for t := c.head; t != nil; t = t.Next {
		if t.SectionOffset == sectionOffset {
			return t
		}
	}
	return nil
}

// Tables returns every table in section order.
func (c *Chain) Tables() []*Table {
	var tables []*Table
	for t := c.head; t != nil; t = t.Next {
		tables = append(tables, t)
	}
	return tables
}

const (
	areaAbbrevs = diag.AreaAbbrevs
)

// Load parses the whole of r into a chain of tables, reporting structural
// violations through rep.
func Load(r *reader.Reader, rep *diag.Reporter) *Chain {
	chain := &Chain{}
	var tail *Table
	var current *Table
	zeroRunStart := -1

	appendTable := func(t *Table) {
		if tail == nil {
			chain.head = t
		} else {
			tail.Next = t
		}
		tail = t
	}

	flushZeroRun := func(runEnd int) {
		if zeroRunStart < 0 {
			return
		}
		if runEnd-zeroRunStart > 1 {
			begin := uint64(zeroRunStart)
			end := uint64(runEnd - 1)
			rep.Reportf(areaAbbrevs|diag.Bloat|diag.Impact2, diag.Loc{Section: ".debug_abbrev"},
				"zero-padding in abbrev section %s", diag.HexRange(begin, end))
		}
		zeroRunStart = -1
	}

	for !r.AtEnd() {
		codeOffset := r.Offset()
		code, status := r.ReadULEB128()
		if status == reader.LEBFatal {
			rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
				"truncated or overlong abbrev code at 0x%x", codeOffset)
			break
		}
		if status == reader.LEBBloat {
			rep.Reportf(diag.AreaLEB128|diag.Bloat|diag.Impact3, diag.Loc{Section: ".debug_abbrev"},
				"unnecessarily long LEB128 encoding for abbrev code at 0x%x", codeOffset)
		}

		if code == 0 {
			if zeroRunStart < 0 {
				zeroRunStart = codeOffset
			}
			current = nil
			continue
		}
		flushZeroRun(codeOffset)

		if current == nil {
			current = &Table{SectionOffset: uint64(codeOffset)}
			appendTable(current)
		}

		ab := Abbrev{Code: code}

		tagOffset := r.Offset()
		tag, status := r.ReadULEB128()
		if status == reader.LEBFatal {
			rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
				"truncated tag for abbrev code %d at 0x%x", code, tagOffset)
			return chain
		}
		if dwconst.Tag(tag) > dwconst.TagHiUser {
			rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
				"invalid tag 0x%x for abbrev code %d", tag, code)
			return chain
		}
		ab.Tag = dwconst.Tag(tag)

		hasChildren, ok := r.ReadU8()
		if !ok {
			rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
				"truncated has_children byte for abbrev code %d", code)
			return chain
		}
		if hasChildren != 0 && hasChildren != 1 {
			rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
				"invalid has_children value %d for abbrev code %d", hasChildren, code)
			return chain
		}
		ab.HasChildren = hasChildren == 1

		siblingSeen := false
		for {
			attrOffset := r.Offset()
			name, status := r.ReadULEB128()
			if status == reader.LEBFatal {
				rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
					"truncated attribute name at 0x%x", attrOffset)
				return chain
			}
			form, status := r.ReadULEB128()
			if status == reader.LEBFatal {
				rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
					"truncated attribute form at 0x%x", attrOffset)
				return chain
			}
			if name == 0 && form == 0 {
				break
			}
			if dwconst.Attr(name) > dwconst.AttrHiUser {
				rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
					"invalid attribute name 0x%x in abbrev code %d", name, code)
				return chain
			}
			if !dwconst.IsValidForm(dwconst.Form(form)) {
				rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
					"invalid attribute form 0x%x in abbrev code %d", form, code)
				return chain
			}

			if dwconst.Attr(name) == dwconst.AttrSibling {
				if siblingSeen {
					rep.Reportf(areaAbbrevs|diag.ErrorFlag|diag.Impact4|diag.AreaDieRelSibling,
						diag.Loc{Section: ".debug_abbrev"},
						"abbrev code %d declares DW_AT_sibling more than once", code)
				}
				siblingSeen = true

				if !ab.HasChildren {
					rep.Reportf(diag.AreaDieRelSibling|diag.Bloat|diag.Impact1, diag.Loc{Section: ".debug_abbrev"},
						"abbrev code %d has DW_AT_sibling but no children", code)
				}

				switch dwconst.ClassifySiblingForm(dwconst.Form(form)) {
				case dwconst.SiblingFormWarnRefAddr:
					rep.Reportf(diag.AreaDieRelSibling|diag.Impact2, diag.Loc{Section: ".debug_abbrev"},
						"abbrev code %d uses DW_FORM_ref_addr for DW_AT_sibling", code)
				case dwconst.SiblingFormError:
					rep.Reportf(diag.AreaDieRelSibling|diag.ErrorFlag|diag.Impact4, diag.Loc{Section: ".debug_abbrev"},
						"abbrev code %d uses an invalid form for DW_AT_sibling", code)
				}
			}

			ab.Attributes = append(ab.Attributes, Attribute{
				Offset: uint64(attrOffset),
				Name:   dwconst.Attr(name),
				Form:   dwconst.Form(form),
			})
		}

		current.Abbrevs = append(current.Abbrevs, ab)
	}
	flushZeroRun(r.Offset())

	for _, t := range chain.Tables() {
		sort.Slice(t.Abbrevs, func(i, j int) bool {
			return t.Abbrevs[i].Code < t.Abbrevs[j].Code
		})
	}

	return chain
}
