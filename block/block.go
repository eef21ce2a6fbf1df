// Package block holds the unit of compilation: BasicBlock, its
// identity Key, and the MicroBlocks it owns.
package block

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
	"tlog.app/go/tlog/tlwire"
)

// Key is a packed digest of every bit of guest state that affects how
// a basic block decodes and executes. Two calls starting from an
// identical Key must produce semantically identical IR.
//
// Layout (low to high): PC [31:0], mode [34:32], thumb [35]. Bits
// [63:36] are left zero, reserved for future ISA-relevant flags.
type Key uint64

const (
	keyPCShift    = 0
	keyModeShift  = 32
	keyThumbShift = 35
)

// NewKey packs pc, the decoded mode and the CPSR into a Key. Only the
// bits decoding depends on (mode, T-bit) are extracted from cpsr; the
// rest of the register does not participate in block identity.
func NewKey(pc uint32, mode arch.Mode, cpsr uint32) Key {
	thumb := uint64(0)
	if cpsr&arch.ThumbBit != 0 {
		thumb = 1
	}

	return Key(uint64(pc)<<keyPCShift | uint64(mode)<<keyModeShift | thumb<<keyThumbShift)
}

// PC extracts the guest program counter the key was built from.
func (k Key) PC() uint32 { return uint32(k) }

// Mode extracts the decoded privilege mode.
func (k Key) Mode() arch.Mode { return arch.Mode((uint64(k) >> keyModeShift) & 0x7) }

// Thumb extracts the T-bit.
func (k Key) Thumb() bool { return (uint64(k)>>keyThumbShift)&1 != 0 }

func (k Key) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "%08x/%v/t%d", k.PC(), k.Mode(), map[bool]int{true: 1, false: 0}[k.Thumb()])
}

// NativeFunc is the zero-argument entry point a compiled block is
// wrapped as. The core never calls native machine code directly; that
// is the host code emitter's job. Tests exercise the pipeline with a
// Go closure standing in for a sealed, executable buffer.
type NativeFunc func()

// BasicBlock is a straight-line guest code region translated as one
// unit. Its identity is Key; everything else is populated over the
// translate -> optimize -> allocate+emit pipeline.
type BasicBlock struct {
	Key Key

	MicroBlocks []*ir.MicroBlock

	Function NativeFunc

	// Length is the number of guest cycles this block consumes,
	// summed across every translated instruction's base cost plus
	// each MicroBlock's DataCycles.
	Length int

	// EnableFastDispatch is cleared for blocks that end in a side
	// effect that might re-enter the dispatcher (e.g. a possible
	// HALTCNT-style store). See CPU.compile in the root jit package for
	// how this also controls whether the block is cached at all.
	EnableFastDispatch bool
}

// NewBasicBlock returns an empty block identified by key, ready for the
// translator to populate.
func NewBasicBlock(key Key) *BasicBlock {
	return &BasicBlock{Key: key, EnableFastDispatch: true}
}

// CurrentMicroBlock returns the MicroBlock the translator should append
// to next, opening the first one if the block has none yet.
func (b *BasicBlock) CurrentMicroBlock() *ir.MicroBlock {
	if len(b.MicroBlocks) == 0 {
		b.MicroBlocks = append(b.MicroBlocks, ir.NewMicroBlock())
	}
	return b.MicroBlocks[len(b.MicroBlocks)-1]
}

// Empty reports whether the translator produced no IR at all: the
// "unknown opcode at current PC" fatal condition.
func (b *BasicBlock) Empty() bool {
	for _, mb := range b.MicroBlocks {
		if mb.Len() > 0 {
			return false
		}
	}
	return true
}
