package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolesPartitionTheDomain(t *testing.T) {
	s := New(10)
	s.Add(2, 4)
	s.Add(7, 7)

	holes := s.Holes()
	assert.Equal(t, []Range{
		{Begin: 0, End: 1},
		{Begin: 5, End: 6},
		{Begin: 8, End: 9},
	}, holes)
}

func TestLeadingAndTrailingHoles(t *testing.T) {
	s := New(5)
	s.Add(1, 3)

	holes := s.Holes()
	assert.Equal(t, []Range{
		{Begin: 0, End: 0},
		{Begin: 4, End: 4},
	}, holes)
}

func TestFullyCoveredHasNoHoles(t *testing.T) {
	s := New(4)
	s.Add(0, 3)
	assert.Empty(t, s.Holes())
}

func TestEmptySetIsOneHole(t *testing.T) {
	s := New(3)
	assert.Equal(t, []Range{{Begin: 0, End: 2}}, s.Holes())
}

func TestSingleBitHoleReportsBeginEqualsEnd(t *testing.T) {
	s := New(3)
	s.Add(0, 0)
	s.Add(2, 2)
	assert.Equal(t, []Range{{Begin: 1, End: 1}}, s.Holes())
}
