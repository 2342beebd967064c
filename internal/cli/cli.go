// Package cli turns the command-line flags of spec.md §6 into the settings
// a diag.Reporter is configured with: --strict, --gnu and -i/--ignore-missing
// adjust the accept/reject masks, --suppress layers a YAML-configured
// category suppression list on top, and --color decides whether the
// reporter colorizes its output. -q/--quiet does not affect the masks.
package cli

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/core-explorer/elfutils/internal/dwarfcheck/diag"
	"github.com/core-explorer/elfutils/pkg/utils"
)

// ErrSuppressFile is the sentinel wrapped by every --suppress loading
// failure, so callers can errors.Is against one stable cause.
var ErrSuppressFile = errors.New("suppress file")

// Flags mirrors the CLI surface spec.md §6 defines, plus the two flags
// SPEC_FULL.md adds on top of it.
type Flags struct {
	Strict        bool
	GNU           bool
	IgnoreMissing bool
	Quiet         bool
	Suppress      string
	Color         string // "auto", "always", "never"
}

// suppressFile is the shape of a --suppress YAML file: a flat list of area
// names to add to the reject mask permanently, independent of --gnu/--strict.
type suppressFile struct {
	Suppress []string `yaml:"suppress"`
}

// AreaNames maps every --suppress YAML category name to its diag.Category
// bit. Exported so `elfutils tools categories` can list them without
// duplicating the table.
var AreaNames = map[string]diag.Category{
	"leb128":        diag.AreaLEB128,
	"abbrevs":       diag.AreaAbbrevs,
	"die-rel-sib":   diag.AreaDieRelSibling,
	"die-rel-child": diag.AreaDieRelChild,
	"die-rel-ref":   diag.AreaDieRelRef,
	"die-other":     diag.AreaDieOther,
	"strings":       diag.AreaStrings,
	"aranges":       diag.AreaAranges,
	"elf":           diag.AreaELF,
	"pubnames":      diag.AreaPubnames,
	"other":         diag.AreaOther,
	"bloat":         diag.Bloat,
	"suboptimal":    diag.Suboptimal,
}

// Masks computes the (accept, reject) pair a configured Reporter should use,
// applying spec.md §6's flag semantics plus any --suppress file.
func Masks(f Flags) (accept, reject diag.Category, err error) {
	accept = diag.DefaultAccept
	reject = diag.DefaultReject

	if f.Strict {
		accept |= diag.AreaStrings
	}
	if f.GNU {
		reject |= diag.Bloat
	}
	if f.IgnoreMissing {
		reject |= diag.AreaELF
	}

	if f.Suppress != "" {
		extra, readErr := loadSuppressions(f.Suppress)
		if readErr != nil {
			return 0, 0, readErr
		}
		reject |= extra
	}

	return accept, reject, nil
}

func loadSuppressions(path string) (diag.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, utils.MakeError(ErrSuppressFile, "could not read %s: %v", path, err)
	}

	var parsed suppressFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return 0, utils.MakeError(ErrSuppressFile, "could not parse %s: %v", path, err)
	}

	var mask diag.Category
	for _, name := range parsed.Suppress {
		cat, ok := AreaNames[name]
		if !ok {
			return 0, utils.MakeError(ErrSuppressFile, "unknown category %q in %s", name, path)
		}
		mask |= cat
	}
	return mask, nil
}

// ColorEnabled resolves the --color flag against whether stdout looks like
// a terminal, following fatih/color's own NoColor convention: "always"
// forces on, "never" forces off, anything else defers to isTTY.
func ColorEnabled(mode string, isTTY bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTTY
	}
}
