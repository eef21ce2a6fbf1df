// Package jit is the root package: component G, the dispatcher and
// embedder-facing CPU façade. It is grounded directly on
// original_source/src/jit.cpp's JIT struct — Run(int cycles),
// SignalIRQ(), and the GPR/CPSR/SPSR accessor set CreateCPU hands back
// as a lunatic::CPU.
package jit

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/block"
	"github.com/lunatic/jit/cache"
	"github.com/lunatic/jit/codegen"
	"github.com/lunatic/jit/codegen/hostsim"
	"github.com/lunatic/jit/guest"
	"github.com/lunatic/jit/memory"
	"github.com/lunatic/jit/optimize"
	"github.com/lunatic/jit/regalloc"
	"github.com/lunatic/jit/translate"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Descriptor configures a CPU at construction, mirroring
// lunatic::CPU::Descriptor in the original (there, just a Memory&;
// here, also the interworking flag the translator needs).
type Descriptor struct {
	Memory memory.Memory

	// ARMv5TE enables interworking loads-into-PC (FlushExchange) in the
	// translator. False reproduces strict ARMv4T behavior.
	ARMv5TE bool
}

// CPU is the embedder-facing JIT core: guest state, the translation
// pipeline and the block cache behind one Run entry point.
type CPU struct {
	state *guest.State
	mem   memory.Memory

	translator translate.Translator
	cache      *cache.Cache

	cyclesToRun int
	irqLine     bool
}

// New constructs a CPU ready to Run, with guest state reset the way a
// real core boots (NewState): USR mode, ARM instruction set, both
// interrupt masks set.
func New(desc Descriptor) *CPU {
	return &CPU{
		state:      guest.NewState(),
		mem:        desc.Memory,
		translator: translate.Translator{ARMv5TE: desc.ARMv5TE},
		cache:      cache.New(),
	}
}

// IRQLine returns a pointer to the CPU's external interrupt request
// line; the embedder raises and lowers it directly, the same lvalue
// idiom jit.cpp's `bool& IRQLine()` exposes.
func (c *CPU) IRQLine() *bool { return &c.irqLine }

// GPR returns the current-mode view of a banked general register,
// resolving the mode from CPSR the way JIT::GetGPR(GPR) does when
// called without an explicit mode.
func (c *CPU) GPR(reg int) *uint32 { return c.state.GPR(c.state.Mode(), reg) }

// GPRBanked returns the view of reg banked under mode explicitly,
// regardless of the CPU's current mode.
func (c *CPU) GPRBanked(mode arch.Mode, reg int) *uint32 { return c.state.GPR(mode, reg) }

// CPSR returns a pointer to the current program status register.
func (c *CPU) CPSR() *uint32 { return c.state.CPSR() }

// SPSR returns a pointer to the saved program status register banked
// under mode. mode must be privileged.
func (c *CPU) SPSR(mode arch.Mode) *uint32 { return c.state.SPSR(mode) }

// InvalidateRange drops every cached block whose guest address falls
// in [start, end), for an embedder that tracks writes into translated
// code itself (the core performs no SMC detection of its own — see
// spec non-goals).
func (c *CPU) InvalidateRange(start, end uint32) { c.cache.Invalidate(start, end) }

// Run executes up to cycles guest cycles, translating and caching
// basic blocks as it goes. It returns the first fatal translation
// error (unimplemented opcode, empty block, or allocator exhaustion)
// encountered; the guest state at that point reflects every block
// successfully executed before the failing one.
func (c *CPU) Run(cycles int) error {
	c.cyclesToRun += cycles

	for c.cyclesToRun > 0 {
		if c.irqLine {
			c.signalIRQ()
		}

		pc := *c.state.GPR(c.state.Mode(), arch.PC)
		key := block.NewKey(pc, c.state.Mode(), *c.state.CPSR())

		bb := c.cache.Get(key)
		if bb == nil {
			var err error
			bb, err = c.compile(key)
			if err != nil {
				return err
			}
		}

		bb.Function()
		c.cyclesToRun -= bb.Length
	}

	return nil
}

// compile translates, optimizes and emits a fresh BasicBlock for key,
// caching it unless EnableFastDispatch is false (a block that might be
// a HALTCNT-style control write is recompiled every entry and never
// cached, so the dispatcher's IRQ-line check in Run is never skipped
// for it).
func (c *CPU) compile(key block.Key) (*block.BasicBlock, error) {
	bb := block.NewBasicBlock(key)

	if err := c.translator.Translate(bb, c.mem); err != nil {
		return nil, errors.Wrap(err, "translate %v", key)
	}

	asm := hostsim.New(c.state, c.mem)

	for _, mb := range bb.MicroBlocks {
		optimize.Optimize(mb)

		alloc := regalloc.New(mb, hostsim.FreeList())
		if err := codegen.Emit(mb, alloc, asm); err != nil {
			return nil, errors.Wrap(err, "emit %v", key)
		}
	}

	bb.Function = asm.Seal()

	if bb.EnableFastDispatch {
		c.cache.Set(key, bb)
	} else {
		tlog.V("jit").Printw("block not cached", "key", key, "reason", "fast_dispatch disabled")
	}

	return bb, nil
}

// signalIRQ enters the IRQ exception the way jit.cpp's SignalIRQ does:
// gated on the I-bit, saving CPSR to SPSR_irq, switching mode, masking
// further IRQs, clearing Thumb, and setting LR to the appropriate
// return address (PC-4 in ARM state, PC in Thumb state, since the
// guest PC the dispatcher reads is already pre-fetch-adjusted) before
// vectoring to the fixed entry point.
func (c *CPU) signalIRQ() {
	cpsr := c.state.CPSR()
	if *cpsr&arch.IRQMaskBit != 0 {
		return
	}

	*c.state.SPSR(arch.IRQ) = *cpsr

	thumb := *cpsr&arch.ThumbBit != 0
	pc := c.state.GPR(c.state.Mode(), arch.PC)

	lr := *pc
	if !thumb {
		lr -= 4
	}
	*c.state.GPR(arch.IRQ, arch.LR) = lr

	*cpsr = (*cpsr &^ (arch.ModeMask | arch.ThumbBit)) | arch.CPSRModeBits(arch.IRQ) | arch.IRQMaskBit

	*c.state.GPR(arch.IRQ, arch.PC) = arch.IRQVector + 8

	tlog.V("jit").Printw("irq entry", "lr", lr)
}
