package translate

import (
	"testing"

	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/block"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlatWithCode(words []uint32, rom []memory.ROMWindow) *memory.Flat {
	size := len(words)*4 + 16
	mem := memory.NewFlat(0, size, rom)
	for i, w := range words {
		mem.Write32(memory.CodeBus, uint32(i*4), w)
	}
	return mem
}

func countAdd(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.Add); ok {
			n++
		}
	}
	return n
}

func countUpdateNZCV(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.UpdateNZCV); ok {
			n++
		}
	}
	return n
}

func countAdvancePC(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.AdvancePC); ok {
			n++
		}
	}
	return n
}

func countStoreGPR(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.StoreGPR); ok {
			n++
		}
	}
	return n
}

func countLDR(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.LDR); ok {
			n++
		}
	}
	return n
}

func countFlushExchange(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.FlushExchange); ok {
			n++
		}
	}
	return n
}

func countFlush(code []ir.Op) (n int) {
	for _, op := range code {
		if _, ok := op.(ir.Flush); ok {
			n++
		}
	}
	return n
}

// scenario 1: ADD R2, R2, #1 (AL, no flags).
func TestTranslate_addImmediateNoFlags(t *testing.T) {
	mem := newFlatWithCode([]uint32{0xE2822001}, nil)

	bb := block.NewBasicBlock(block.NewKey(0, arch.USR, 0))

	var tr Translator
	require.NoError(t, tr.Translate(bb, mem))

	require.Len(t, bb.MicroBlocks, 1)
	code := bb.MicroBlocks[0].Code()

	assert.Equal(t, 1, countAdd(code))
	assert.Equal(t, 0, countUpdateNZCV(code), "no set-flags, no flag writeback")
	assert.Equal(t, 1, countAdvancePC(code))
	assert.Equal(t, 1, bb.Length)
	assert.True(t, bb.EnableFastDispatch)
}

// scenario 2: MOV R0, #0xFF (AL).
func TestTranslate_movImmediate(t *testing.T) {
	mem := newFlatWithCode([]uint32{0xE3A000FF}, nil)

	bb := block.NewBasicBlock(block.NewKey(0, arch.USR, 0))

	var tr Translator
	require.NoError(t, tr.Translate(bb, mem))

	code := bb.MicroBlocks[0].Code()
	require.Equal(t, 1, countStoreGPR(code))

	for _, op := range code {
		if s, ok := op.(ir.StoreGPR); ok {
			assert.Equal(t, arch.R0, s.Reg.Reg)
			require.False(t, s.Src.IsVar)
			assert.Equal(t, uint32(0xFF), s.Src.Const.Value)
		}
	}
}

// scenario 3: LDR R0, [PC, #0] in ARM state at PC=0x08000100, ROM byte
// layout at 0x08000108 equal to DE AD BE EF little-endian.
func TestTranslate_ldrPCRelative_romShortcutARM(t *testing.T) {
	const base = 0x08000100

	mem := memory.NewFlat(base, 0x200, []memory.ROMWindow{{Start: base, End: base + 0x1FF}})
	mem.Write32(memory.CodeBus, base, 0xE59F0000) // LDR R0, [PC, #0]
	mem.Write32(memory.DataBus, base+8, 0xEFBEADDE)

	bb := block.NewBasicBlock(block.NewKey(base, arch.USR, 0))

	var tr Translator
	require.NoError(t, tr.Translate(bb, mem))

	code := bb.MicroBlocks[0].Code()
	require.Equal(t, 0, countLDR(code), "ROM shortcut must fire: no runtime load emitted")

	var found bool
	for _, op := range code {
		if mov, ok := op.(ir.MOV); ok && !mov.Src.IsVar && mov.Src.Const.Value == 0xEFBEADDE {
			found = true
		}
	}
	assert.True(t, found, "expected a MOV of the folded literal 0xEFBEADDE")
}

// scenario 4: LDR R0, [PC, #0] in Thumb state at PC=0x08000102.
func TestTranslate_ldrPCRelative_romShortcutThumb(t *testing.T) {
	const pc = 0x08000102
	const base = 0x08000100

	mem := memory.NewFlat(base, 0x200, []memory.ROMWindow{{Start: base, End: base + 0x1FF}})
	mem.Write16(memory.CodeBus, pc, 0x4800) // LDR R0, [PC, #0] (Thumb format 6)
	mem.Write32(memory.DataBus, 0x08000104, 0xDEADBEEF)

	bb := block.NewBasicBlock(block.NewKey(pc, arch.USR, arch.ThumbBit))

	var tr Translator
	require.NoError(t, tr.Translate(bb, mem))

	code := bb.MicroBlocks[0].Code()
	require.Equal(t, 0, countLDR(code))

	var found bool
	for _, op := range code {
		if mov, ok := op.(ir.MOV); ok && !mov.Src.IsVar && mov.Src.Const.Value == 0xDEADBEEF {
			found = true
		}
	}
	assert.True(t, found)
}

// scenario 5: STRB R0, [R1, #0x301] (the HALTCNT-style offset the
// heuristic keys on, since the base register's runtime value isn't
// known at translate time): block ends with enable_fast_dispatch =
// false.
func TestTranslate_strbHaltcnt(t *testing.T) {
	mem := newFlatWithCode([]uint32{0xE5C10301}, nil) // STRB R0, [R1, #0x301]

	bb := block.NewBasicBlock(block.NewKey(0, arch.USR, 0))

	var tr Translator
	require.NoError(t, tr.Translate(bb, mem))

	assert.False(t, bb.EnableFastDispatch)
}

// scenario 6: LDR R15, [R0] on ARMv5TE with loaded word 0x00008001:
// block ends with FlushExchange.
func TestTranslate_ldrIntoPC_flushExchange(t *testing.T) {
	mem := newFlatWithCode([]uint32{0xE590F000}, nil) // LDR R15, [R0]
	mem.Write32(memory.DataBus, 8, 0x00008001)

	bb := block.NewBasicBlock(block.NewKey(0, arch.USR, 0))

	tr := Translator{ARMv5TE: true}
	require.NoError(t, tr.Translate(bb, mem))

	code := bb.MicroBlocks[0].Code()
	assert.Equal(t, 1, countFlushExchange(code))
	assert.Equal(t, 0, countFlush(code))
}

func TestTranslate_emptyBlockIsUnimplementedError(t *testing.T) {
	mem := newFlatWithCode([]uint32{0xFFFFFFFF}, nil) // classUnknown

	bb := block.NewBasicBlock(block.NewKey(0, arch.USR, 0))

	var tr Translator
	err := tr.Translate(bb, mem)
	require.Error(t, err)

	_, ok := err.(EmptyBlockError)
	assert.True(t, ok, "expected EmptyBlockError, got %T", err)
}
