// Package elfsource is the ELF-to-section extraction layer spec.md §1 treats
// as an external collaborator: it opens an object file with debug/elf and
// hands the checker named byte slices plus endianness, never parsing DWARF
// content itself. Grounded on the teacher's own ELF-opening pattern in
// pkg/hw/cpu/llvm/binaryfileparser.go (debug/elf.NewFile, Section-by-name,
// Data()), generalized from one fixed section (.text) to the five debug
// sections this checker cares about.
package elfsource

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
)

// Sections holds everything the checker pipeline needs from one ELF file:
// the five named debug sections (any may be absent, signaled by a nil
// slice) and the byte order to decode them with.
type Sections struct {
	Path  string
	Order binary.ByteOrder

	DebugAbbrev   []byte
	DebugInfo     []byte
	DebugStr      []byte
	DebugAranges  []byte
	DebugPubnames []byte
}

// Missing reports which of the five debug sections were not present in the
// file, for the -i/--ignore-missing diagnostic path.
func (s *Sections) Missing() []string {
	var missing []string
	if s.DebugAbbrev == nil {
		missing = append(missing, ".debug_abbrev")
	}
	if s.DebugInfo == nil {
		missing = append(missing, ".debug_info")
	}
	if s.DebugStr == nil {
		missing = append(missing, ".debug_str")
	}
	if s.DebugAranges == nil {
		missing = append(missing, ".debug_aranges")
	}
	if s.DebugPubnames == nil {
		missing = append(missing, ".debug_pubnames")
	}
	return missing
}

// Open reads path as an ELF object file and extracts the debug sections the
// checker pipeline needs. A missing section is not an error here; the
// driver decides what to do about it.
func Open(path string) (*Sections, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	elfFile, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	order := binary.ByteOrder(binary.BigEndian)
	if elfFile.Data == elf.ELFDATA2LSB {
		order = binary.LittleEndian
	}

	result := &Sections{Path: path, Order: order}
	result.DebugAbbrev = sectionData(elfFile, ".debug_abbrev")
	result.DebugInfo = sectionData(elfFile, ".debug_info")
	result.DebugStr = sectionData(elfFile, ".debug_str")
	result.DebugAranges = sectionData(elfFile, ".debug_aranges")
	result.DebugPubnames = sectionData(elfFile, ".debug_pubnames")

	return result, nil
}

func sectionData(f *elf.File, name string) []byte {
	sect := f.Section(name)
	if sect == nil {
		return nil
	}
	data, err := sect.Data()
	if err != nil {
		return nil
	}
	return data
}
