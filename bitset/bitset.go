// Package bitset is a growable bitset indexed by small dense integers,
// adapted from the teacher compiler's compiler/bitmap package (the
// same word-per-64-ids layout, Set/Clear/IsSet/Range) and retargeted
// from arbitrary compiler IDs to ir.Variable.ID: every Variable the
// translator hands out already carries a dense, per-MicroBlock integer
// id (see ir.MicroBlock.CreateVar), which is exactly what this type
// wants for an index.
//
// optimize's dead-variable elimination needs a "have I seen variable
// N" set sized to one micro-block;
// a Go map works but allocates per key, and a block's working set is
// small and dense enough that a handful of uint64 words beats a map
// on every pass the hot translate-compile path runs.
package bitset

import "math/bits"

// Set is a sparse-growable bitset over non-negative integer ids.
type Set struct {
	words []uint64
	w0    [1]uint64
}

// New returns an empty Set.
func New() *Set {
	s := &Set{}
	s.words = s.w0[:]
	return s
}

func (s *Set) index(i int) (word, bit int) {
	return i / 64, i % 64
}

func (s *Set) grow(word int) {
	for word >= len(s.words) {
		s.words = append(s.words, 0)
	}
}

// Add marks i as present.
func (s *Set) Add(i int) {
	w, b := s.index(i)
	s.grow(w)
	s.words[w] |= 1 << uint(b)
}

// Has reports whether i is present.
func (s *Set) Has(i int) bool {
	w, b := s.index(i)
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<uint(b)) != 0
}

// Remove clears i.
func (s *Set) Remove(i int) {
	w, b := s.index(i)
	if w >= len(s.words) {
		return
	}
	s.words[w] &^= 1 << uint(b)
}

// Len returns the number of ids currently present.
func (s *Set) Len() (n int) {
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Range calls f for every present id in ascending order, stopping early
// if f returns false.
func (s *Set) Range(f func(i int) bool) {
	for wi, w := range s.words {
		if w == 0 {
			continue
		}
		for b := 0; b < 64; b++ {
			if w&(1<<uint(b)) == 0 {
				continue
			}
			if !f(wi*64 + b) {
				return
			}
		}
	}
}
