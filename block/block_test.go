package block

import (
	"testing"

	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
)

func TestKey_roundTrip(t *testing.T) {
	cases := []struct {
		pc    uint32
		mode  arch.Mode
		cpsr  uint32
		thumb bool
	}{
		{0x08000100, arch.USR, 0, false},
		{0x08000102, arch.SVC, arch.ThumbBit, true},
		{0x00001000, arch.IRQ, arch.ThumbBit | arch.IRQMaskBit, true},
	}

	for _, c := range cases {
		k := NewKey(c.pc, c.mode, c.cpsr)

		if got := k.PC(); got != c.pc {
			t.Errorf("PC() = %#x, want %#x", got, c.pc)
		}
		if got := k.Mode(); got != c.mode {
			t.Errorf("Mode() = %v, want %v", got, c.mode)
		}
		if got := k.Thumb(); got != c.thumb {
			t.Errorf("Thumb() = %v, want %v", got, c.thumb)
		}
	}
}

func TestKey_distinctPCsDistinctKeys(t *testing.T) {
	a := NewKey(0x1000, arch.USR, 0)
	b := NewKey(0x1004, arch.USR, 0)

	if a == b {
		t.Error("distinct PCs produced the same key")
	}
}

func TestBasicBlock_emptyUntilTranslated(t *testing.T) {
	bb := NewBasicBlock(NewKey(0, arch.USR, 0))
	if !bb.Empty() {
		t.Error("fresh block should be empty")
	}

	mb := bb.CurrentMicroBlock()
	mb.Append(ir.AdvancePC{Amount: 4})

	if bb.Empty() {
		t.Error("block with an appended opcode should not be empty")
	}
}
