package elfsource

import (
	"os"
	"testing"
)

func TestMissingListsAllAbsentSections(t *testing.T) {
	s := &Sections{}
	missing := s.Missing()
	if len(missing) != 5 {
		t.Fatalf("expected all 5 debug sections reported missing, got %v", missing)
	}
}

func TestMissingIsEmptyWhenAllPresent(t *testing.T) {
	s := &Sections{
		DebugAbbrev:   []byte{0},
		DebugInfo:     []byte{0},
		DebugStr:      []byte{0},
		DebugAranges:  []byte{0},
		DebugPubnames: []byte{0},
	}
	if missing := s.Missing(); len(missing) != 0 {
		t.Fatalf("expected no sections missing, got %v", missing)
	}
}

func TestOpenRejectsNonELFFile(t *testing.T) {
	path := t.TempDir() + "/not-an-elf"
	if err := os.WriteFile(path, []byte("not an elf file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected an error opening a non-ELF file")
	}
}
