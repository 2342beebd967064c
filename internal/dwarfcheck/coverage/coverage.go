// Package coverage implements the fixed-size bit set used to track which
// byte offsets of a section (currently only .debug_str) have been claimed
// by a decoded attribute, so the unclaimed ranges can be reported as holes.
//
// Individual bits are addressed through utils.BitView, generalized here
// from a view over one fixed-width register to a view over one byte of a
// backing slice sized once by New.
package coverage

import "github.com/core-explorer/elfutils/pkg/utils"

// Range is an inclusive byte range [Begin, End].
type Range struct {
	Begin int
	End   int
}

// Set is a bit set over [0, size). Add uses an inclusive-inclusive range
// convention on both ends to match the producer's usage for string ranges
// (spec.md §4.B).
type Set struct {
	size int
	bits []byte
}

// New allocates a coverage set over [0, size).
func New(size int) *Set {
	if size < 0 {
		size = 0
	}
	return &Set{size: size, bits: make([]byte, (size+7)/8)}
}

// Size returns the set's domain size.
func (s *Set) Size() int { return s.size }

func (s *Set) set(i int) {
	if i < 0 || i >= s.size {
		return
	}
	utils.CreateBitView(&s.bits[i/8]).SetBit(i % 8)
}

func (s *Set) isSet(i int) bool {
	if i < 0 || i >= s.size {
		return false
	}
	return utils.CreateBitView(&s.bits[i/8]).Read(i%8, 1) != 0
}

// Add marks every byte index in [begin, end], inclusive on both ends.
func (s *Set) Add(begin, end int) {
	if begin > end {
		return
	}
	for i := begin; i <= end; i++ {
		s.set(i)
	}
}

// Holes returns every maximal inclusive range of unset bits, in ascending
// order. A leading hole starting at 0 and a trailing hole ending at
// size-1 are both reported; a single unset bit at index i is reported as
// Range{i, i}.
func (s *Set) Holes() []Range {
	var holes []Range
	inHole := false
	holeStart := 0

	for i := 0; i < s.size; i++ {
		if s.isSet(i) {
			if inHole {
				holes = append(holes, Range{Begin: holeStart, End: i - 1})
				inHole = false
			}
			continue
		}
		if !inHole {
			inHole = true
			holeStart = i
		}
	}
	if inHole {
		holes = append(holes, Range{Begin: holeStart, End: s.size - 1})
	}
	return holes
}

// Free releases the underlying buffer. The set must not be used afterward.
func (s *Set) Free() {
	s.bits = nil
}
