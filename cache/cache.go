// Package cache implements the two-level sparse block cache the
// dispatcher consults before translating: component G. It is a direct
// port of jit.cpp's nested BlockCache/Table structure, with the outer
// fixed-size C array replaced by a Go map since block.Key carries mode
// and thumb bits above the address field and is no longer guaranteed
// to fit the original's dense 0x40000-entry outer table.
package cache

import (
	"github.com/lunatic/jit/block"
	"nikand.dev/go/heap"
)

// innerBits is the width of the inner table's index, taken unchanged
// from the original's `key.value & 0x7FFFF`.
const innerBits = 19
const innerSize = 1 << innerBits
const innerMask = innerSize - 1

type entry struct {
	bb  *block.BasicBlock
	seq uint64
}

type table struct {
	data [innerSize]*entry
}

// Cache is the JIT's block cache: outer tables are allocated lazily, one
// per distinct high-bits group, mirroring `Table* data[page]` being
// nulled until first Set in the original.
type Cache struct {
	outer map[uint64]*table
	seq   uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{outer: make(map[uint64]*table)}
}

// Get returns the cached block for key, or nil on a miss.
func (c *Cache) Get(key block.Key) *block.BasicBlock {
	t := c.outer[uint64(key)>>innerBits]
	if t == nil {
		return nil
	}
	e := t.data[uint64(key)&innerMask]
	if e == nil {
		return nil
	}
	return e.bb
}

// Set installs bb under key, allocating the outer table entry on first
// use of its high bits.
func (c *Cache) Set(key block.Key, bb *block.BasicBlock) {
	hi := uint64(key) >> innerBits
	t := c.outer[hi]
	if t == nil {
		t = &table{}
		c.outer[hi] = t
	}

	c.seq++
	t.data[uint64(key)&innerMask] = &entry{bb: bb, seq: c.seq}
}

// Invalidate drops every cached block whose address falls within
// [start, end). Used when guest code writes to a region that may have
// already been translated (self-modifying code), mirroring the
// embedder-driven invalidation the design notes call for since this
// core has no write-tracking of its own.
func (c *Cache) Invalidate(start, end uint32) {
	for _, t := range c.outer {
		for i, e := range t.data {
			if e == nil {
				continue
			}
			pc := e.bb.Key.PC()
			if pc >= start && pc < end {
				t.data[i] = nil
			}
		}
	}
}

// entryLoc remembers where an entry lives so Flush can null it out
// after eviction.
type entryLoc struct {
	t *table
	i int
	e *entry
}

// Flush evicts the n oldest-inserted blocks, oldest first, ordering
// candidates with a min-heap keyed by insertion sequence rather than
// sorting the whole cache. This backs a coarse embedder-driven reclaim
// (e.g. "the cache has grown too large") distinct from Invalidate's
// address-range targeted drop.
func (c *Cache) Flush(n int) int {
	if n <= 0 {
		return 0
	}

	h := heap.Heap[entryLoc]{Less: func(d []entryLoc, i, j int) bool { return d[i].e.seq < d[j].e.seq }}

	for _, t := range c.outer {
		for i, e := range t.data {
			if e != nil {
				h.Push(entryLoc{t: t, i: i, e: e})
			}
		}
	}

	evicted := 0
	for evicted < n && h.Len() > 0 {
		loc := h.Pop()
		loc.t.data[loc.i] = nil
		evicted++
	}

	return evicted
}

// Len reports how many blocks are currently resident, for tests and
// diagnostics.
func (c *Cache) Len() int {
	n := 0
	for _, t := range c.outer {
		for _, e := range t.data {
			if e != nil {
				n++
			}
		}
	}
	return n
}
