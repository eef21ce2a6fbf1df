// Package guest models the ARM CPU-visible state the JIT interprets:
// banked general-purpose registers, the current CPSR and the five
// privileged-mode SPSRs. It has no notion of IR or translation; it is
// the memory the translator reads constants out of and the emitted
// code reads and writes at run time.
package guest

import "github.com/lunatic/jit/arch"

// State is the banked guest register file. Storage mirrors the
// physical banking ARM defines: FIQ has its own R8-R14, every other
// privileged mode banks R13-R14, and USR/SYS share everything else.
type State struct {
	common [13]uint32 // R0-R12; FIQ shares only R0-R7 from here
	fiqHi  [5]uint32  // FIQ's private R8-R12

	bankedSP [7]uint32 // SP per mode, indexed by arch.Mode
	bankedLR [7]uint32 // LR per mode, indexed by arch.Mode

	pc uint32

	cpsr uint32
	spsr [7]uint32 // indexed by arch.Mode; USR's slot is unused
}

// NewState returns a guest register file with every register zeroed
// and CPSR set to USR mode, ARM instruction set, both interrupt masks
// set (the reset state a real core boots into).
func NewState() *State {
	s := &State{}
	s.cpsr = arch.CPSRModeBits(arch.USR) | arch.FIQMaskBit | arch.IRQMaskBit
	return s
}

// GPR returns a pointer to guest register reg as banked under mode.
// The returned pointer aliases the register's physical storage: writes
// through it are immediately visible to every other accessor of the
// same banked register.
func (s *State) GPR(mode arch.Mode, reg int) *uint32 {
	switch {
	case reg == arch.PC:
		return &s.pc
	case reg == arch.R14:
		return &s.bankedLR[mode]
	case reg == arch.R13:
		return &s.bankedSP[mode]
	case mode == arch.FIQ && reg >= arch.R8 && reg <= arch.R12:
		return &s.fiqHi[reg-arch.R8]
	default:
		return &s.common[reg]
	}
}

// CPSR returns a pointer to the current program status register.
func (s *State) CPSR() *uint32 { return &s.cpsr }

// Mode reads the privilege mode currently encoded in CPSR.
func (s *State) Mode() arch.Mode { return arch.ModeFromCPSR(s.cpsr) }

// Thumb reports whether the T-bit is set in CPSR.
func (s *State) Thumb() bool { return s.cpsr&arch.ThumbBit != 0 }

// SPSR returns a pointer to the saved program status register banked
// under mode. Mode must be privileged; USR has no SPSR and callers must
// not dereference the result for mode == arch.USR.
func (s *State) SPSR(mode arch.Mode) *uint32 { return &s.spsr[mode] }
