package jit

import (
	"testing"

	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenario 1: ADD R2, R2, #1 (AL, no flags), R2 starts at 0x41.
func TestRun_addImmediateNoFlags(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xE2822001)

	cpu := New(Descriptor{Memory: mem})
	*cpu.GPR(arch.R2) = 0x41
	priorCPSR := *cpu.CPSR()

	require.NoError(t, cpu.Run(1))

	assert.Equal(t, uint32(0x42), *cpu.GPR(arch.R2))
	assert.Equal(t, uint32(4), *cpu.GPR(arch.PC))
	assert.Equal(t, priorCPSR, *cpu.CPSR(), "no set-flags ADD must not touch CPSR")
}

// scenario 2: MOV R0, #0xFF (AL).
func TestRun_movImmediate(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xE3A000FF)

	cpu := New(Descriptor{Memory: mem})
	require.NoError(t, cpu.Run(1))

	assert.Equal(t, uint32(0xFF), *cpu.GPR(arch.R0))
}

// scenario 5: STRB R0, [R1, #0x301], a HALTCNT-style address: the
// compiled block must never enter the cache, so every Run re-translates
// and re-checks the IRQ line.
func TestRun_strbHaltcnt_notCached(t *testing.T) {
	mem := memory.NewFlat(0, 0x1000, nil)
	mem.Write32(memory.CodeBus, 0, 0xE5C10301) // STRB R0, [R1, #0x301]

	cpu := New(Descriptor{Memory: mem})
	require.NoError(t, cpu.Run(1))

	assert.Equal(t, 0, cpu.cache.Len())
}

// scenario 6: LDR R15, [R0] on ARMv5TE loads an odd address into PC,
// which must switch the guest into Thumb state via FlushExchange.
func TestRun_ldrIntoPC_flushExchange(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xE590F000) // LDR R15, [R0]
	mem.Write32(memory.DataBus, 0x40, 0x00000011)

	cpu := New(Descriptor{Memory: mem, ARMv5TE: true})
	*cpu.GPR(arch.R0) = 0x40
	require.NoError(t, cpu.Run(1))

	assert.Equal(t, uint32(0x10), *cpu.GPR(arch.PC))
	assert.NotZero(t, *cpu.CPSR()&arch.ThumbBit)
}

// scenario 7: IRQ asserted with CPSR.mask_irq=0, ARM state, PC=0x1000.
func TestSignalIRQ_entry(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	cpu := New(Descriptor{Memory: mem})

	*cpu.CPSR() &^= arch.IRQMaskBit
	*cpu.GPR(arch.PC) = 0x1000
	priorCPSR := *cpu.CPSR()

	cpu.signalIRQ()

	assert.Equal(t, arch.IRQ, arch.ModeFromCPSR(*cpu.CPSR()))
	assert.NotZero(t, *cpu.CPSR()&arch.IRQMaskBit)
	assert.Zero(t, *cpu.CPSR()&arch.ThumbBit)
	assert.Equal(t, uint32(0xFFC), *cpu.GPRBanked(arch.IRQ, arch.LR))
	assert.Equal(t, uint32(arch.IRQVector+8), *cpu.GPRBanked(arch.IRQ, arch.PC))
	assert.Equal(t, priorCPSR, *cpu.SPSR(arch.IRQ))
}

// A masked IRQ line must never interrupt execution: mask_irq=1 is the
// reset default, so a freshly constructed CPU must run straight through
// a raised IRQLine without diverting to the vector.
func TestRun_irqLineMaskedByDefault(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xE3A000FF) // MOV R0, #0xFF

	cpu := New(Descriptor{Memory: mem})
	*cpu.IRQLine() = true

	require.NoError(t, cpu.Run(1))

	assert.Equal(t, uint32(0xFF), *cpu.GPR(arch.R0))
	assert.Equal(t, arch.USR, arch.ModeFromCPSR(*cpu.CPSR()))
}

func TestCPU_invalidateRangeDropsCachedBlock(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xE3A000FF) // MOV R0, #0xFF

	cpu := New(Descriptor{Memory: mem})
	require.NoError(t, cpu.Run(1))
	assert.Equal(t, 1, cpu.cache.Len())

	cpu.InvalidateRange(0, 4)
	assert.Equal(t, 0, cpu.cache.Len())
}

func TestRun_unimplementedOpcodeStopsAtFault(t *testing.T) {
	mem := memory.NewFlat(0, 0x100, nil)
	mem.Write32(memory.CodeBus, 0, 0xFFFFFFFF) // classUnknown

	cpu := New(Descriptor{Memory: mem})
	err := cpu.Run(1)
	require.Error(t, err)
}
