// Package records implements the two small collections the DIE walker and
// cross-reference resolver share: a sorted, deduplicated set of section
// offsets (used for a CU's die_addresses) and an append-only list of
// (target, referrer) reference pairs.
package records

import "sort"

// AddrSet is a sorted set of absolute section offsets.
type AddrSet struct {
	addrs []uint64
}

// NewAddrSet returns an empty address set.
func NewAddrSet() *AddrSet {
	return &AddrSet{}
}

// Find returns the index of the first element >= addr (the lower bound).
func (s *AddrSet) Find(addr uint64) int {
	return sort.Search(len(s.addrs), func(i int) bool {
		return s.addrs[i] >= addr
	})
}

// Has reports whether addr is present in the set.
func (s *AddrSet) Has(addr uint64) bool {
	i := s.Find(addr)
	return i < len(s.addrs) && s.addrs[i] == addr
}

// Add inserts addr in sorted position. Duplicate insertions are no-ops.
func (s *AddrSet) Add(addr uint64) {
	i := s.Find(addr)
	if i < len(s.addrs) && s.addrs[i] == addr {
		return
	}
	s.addrs = append(s.addrs, 0)
	copy(s.addrs[i+1:], s.addrs[i:])
	s.addrs[i] = addr
}

// Len returns the number of distinct addresses in the set.
func (s *AddrSet) Len() int { return len(s.addrs) }

// At returns the i-th address in ascending order.
func (s *AddrSet) At(i int) uint64 { return s.addrs[i] }

// All returns the addresses in ascending order. The returned slice must not
// be mutated by the caller.
func (s *AddrSet) All() []uint64 { return s.addrs }

// Ref is a single (target, referrer) reference pair: referrer is the
// absolute offset of the DIE holding the reference attribute, target is the
// absolute offset the attribute points at.
type Ref struct {
	Target   uint64
	Referrer uint64
}

// RefList is an append-only, unsorted list of reference pairs. Duplicates
// are allowed.
type RefList struct {
	refs []Ref
}

// NewRefList returns an empty reference list.
func NewRefList() *RefList {
	return &RefList{}
}

// Add appends a (target, referrer) pair.
func (l *RefList) Add(target, referrer uint64) {
	l.refs = append(l.refs, Ref{Target: target, Referrer: referrer})
}

// All returns the recorded pairs in insertion order.
func (l *RefList) All() []Ref { return l.refs }

// Len returns the number of recorded pairs.
func (l *RefList) Len() int { return len(l.refs) }
