package guest

import (
	"testing"

	"github.com/lunatic/jit/arch"
)

func TestNewState_resetDefaults(t *testing.T) {
	s := NewState()

	if s.Mode() != arch.USR {
		t.Errorf("reset mode = %v, want USR", s.Mode())
	}
	if s.Thumb() {
		t.Error("reset state should not be in Thumb mode")
	}
	if *s.CPSR()&arch.IRQMaskBit == 0 || *s.CPSR()&arch.FIQMaskBit == 0 {
		t.Error("reset state should have both interrupt masks set")
	}
}

func TestGPR_commonBankShared(t *testing.T) {
	s := NewState()

	*s.GPR(arch.USR, arch.R4) = 0x1234

	if got := *s.GPR(arch.SVC, arch.R4); got != 0x1234 {
		t.Errorf("R4 should be shared between USR and SVC, got %#x", got)
	}
}

func TestGPR_fiqBankPrivate(t *testing.T) {
	s := NewState()

	*s.GPR(arch.USR, arch.R9) = 0x11
	*s.GPR(arch.FIQ, arch.R9) = 0x22

	if got := *s.GPR(arch.USR, arch.R9); got != 0x11 {
		t.Errorf("USR R9 = %#x, want unchanged 0x11", got)
	}
	if got := *s.GPR(arch.FIQ, arch.R9); got != 0x22 {
		t.Errorf("FIQ R9 = %#x, want private 0x22", got)
	}
}

func TestGPR_spAndLrBankedPerMode(t *testing.T) {
	s := NewState()

	*s.GPR(arch.SVC, arch.SP) = 0xAAAA
	*s.GPR(arch.IRQ, arch.SP) = 0xBBBB

	if got := *s.GPR(arch.SVC, arch.SP); got != 0xAAAA {
		t.Errorf("SVC SP = %#x, want 0xAAAA", got)
	}
	if got := *s.GPR(arch.IRQ, arch.SP); got != 0xBBBB {
		t.Errorf("IRQ SP = %#x, want 0xBBBB", got)
	}
}

func TestGPR_pcSharedAcrossModes(t *testing.T) {
	s := NewState()

	*s.GPR(arch.IRQ, arch.PC) = 0x08000100

	if got := *s.GPR(arch.USR, arch.PC); got != 0x08000100 {
		t.Errorf("PC should not be banked, got %#x", got)
	}
}
