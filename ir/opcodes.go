package ir

import "github.com/lunatic/jit/arch"

// Op is the tagged variant every IR opcode implements. Writes and Reads
// are total over the opcode/variable pair: every opcode must answer
// both queries without a default branch, which is what lets the
// optimizer and register allocator stay opcode-agnostic.
type Op interface {
	// Writes reports whether this opcode defines v.
	Writes(v *Variable) bool
	// Reads reports whether this opcode uses v as an operand.
	Reads(v *Variable) bool
}

// ShiftType is the barrel-shifter operation named by a register-shifted
// data-processing or load/store operand.
type ShiftType int

const (
	LSL ShiftType = iota
	LSR
	ASR
	ROR
)

// LoadStoreWidth controls the width and sign/rotate behavior of LDR/STR.
type LoadStoreWidth int

const (
	Word LoadStoreWidth = iota
	Byte
	WordRotate // word load with the ARM "rotated read" misalignment behavior
)

type (
	// LoadGPR reads a banked guest register into a fresh IR variable.
	LoadGPR struct {
		Dst *Variable
		Reg arch.GuestReg
	}

	// StoreGPR writes an IR value back into a banked guest register.
	StoreGPR struct {
		Reg arch.GuestReg
		Src Value
	}

	// LoadCPSR reads the current guest CPSR into an IR variable.
	LoadCPSR struct {
		Dst *Variable
	}

	// StoreCPSR writes an IR value into the guest CPSR.
	StoreCPSR struct {
		Src Value
	}

	// MOV copies Src into Dst, optionally updating NZCV as a side effect
	// flagged by SetFlags (the flag update itself is a separate
	// UpdateNZCV opcode the translator emits alongside it).
	MOV struct {
		Dst      *Variable
		Src      Value
		SetFlags bool
	}

	// Add computes Dst = LHS + RHS.
	Add struct {
		Dst      *Variable
		LHS, RHS Value
		SetFlags bool
	}

	// Sub computes Dst = LHS - RHS.
	Sub struct {
		Dst      *Variable
		LHS, RHS Value
		SetFlags bool
	}

	// Shift is the shared shape of LSL/LSR/ASR/ROR: Dst = Src shifted by
	// Amount. The Type field carries which shift.
	Shift struct {
		Type     ShiftType
		Dst      *Variable
		Src      Value
		Amount   Value
		SetFlags bool
	}

	// LDR loads Width-wide data from Address into Dst.
	LDR struct {
		Dst     *Variable
		Address Value
		Width   LoadStoreWidth
	}

	// STR stores Src, truncated to Width, to Address.
	STR struct {
		Address Value
		Src     Value
		Width   LoadStoreWidth
	}

	// UpdateNZCV recomputes the N and Z bits of CPSRIn from Result,
	// producing Dst; C and V are carried over from CPSRIn unchanged,
	// since Result alone does not determine them. The translator always brackets this with a
	// LoadCPSR/StoreCPSR pair so the guest-visible flag update is
	// atomic with respect to any other CPSR access.
	UpdateNZCV struct {
		Dst    *Variable
		CPSRIn Value
		Result Value
	}

	// AdvancePC bumps the guest PC by Amount (4 in ARM state, 2 in
	// Thumb). It has no IR operands: PC is guest-visible state, not a
	// tracked variable.
	AdvancePC struct {
		Amount uint32
	}

	// Flush terminates a block by setting guest PC to Address; the
	// instruction set (T-bit) is unchanged.
	Flush struct {
		Address Value
	}

	// FlushExchange terminates a block the same way as Flush but also
	// updates the T-bit from bit 0 of Address (an interworking branch).
	FlushExchange struct {
		Address Value
	}
)

func (x LoadGPR) Writes(v *Variable) bool { return x.Dst == v }
func (x LoadGPR) Reads(v *Variable) bool  { return false }

func (x StoreGPR) Writes(v *Variable) bool { return false }
func (x StoreGPR) Reads(v *Variable) bool  { return x.Src.references(v) }

func (x LoadCPSR) Writes(v *Variable) bool { return x.Dst == v }
func (x LoadCPSR) Reads(v *Variable) bool  { return false }

func (x StoreCPSR) Writes(v *Variable) bool { return false }
func (x StoreCPSR) Reads(v *Variable) bool  { return x.Src.references(v) }

func (x MOV) Writes(v *Variable) bool { return x.Dst == v }
func (x MOV) Reads(v *Variable) bool  { return x.Src.references(v) }

func (x Add) Writes(v *Variable) bool { return x.Dst == v }
func (x Add) Reads(v *Variable) bool  { return x.LHS.references(v) || x.RHS.references(v) }

func (x Sub) Writes(v *Variable) bool { return x.Dst == v }
func (x Sub) Reads(v *Variable) bool  { return x.LHS.references(v) || x.RHS.references(v) }

func (x Shift) Writes(v *Variable) bool { return x.Dst == v }
func (x Shift) Reads(v *Variable) bool {
	return x.Src.references(v) || x.Amount.references(v)
}

func (x LDR) Writes(v *Variable) bool { return x.Dst == v }
func (x LDR) Reads(v *Variable) bool  { return x.Address.references(v) }

func (x STR) Writes(v *Variable) bool { return false }
func (x STR) Reads(v *Variable) bool {
	return x.Address.references(v) || x.Src.references(v)
}

func (x UpdateNZCV) Writes(v *Variable) bool { return x.Dst == v }
func (x UpdateNZCV) Reads(v *Variable) bool {
	return x.CPSRIn.references(v) || x.Result.references(v)
}

func (x AdvancePC) Writes(v *Variable) bool { return false }
func (x AdvancePC) Reads(v *Variable) bool  { return false }

func (x Flush) Writes(v *Variable) bool { return false }
func (x Flush) Reads(v *Variable) bool  { return x.Address.references(v) }

func (x FlushExchange) Writes(v *Variable) bool { return false }
func (x FlushExchange) Reads(v *Variable) bool  { return x.Address.references(v) }

// HasSideEffect reports whether op has an externally visible effect
// beyond writing its Dst variable: guest register/CPSR/memory writes,
// PC flushes and PC advances, or setting flags (the translator always
// pairs a flag-setting op with a LoadCPSR/UpdateNZCV/StoreCPSR
// sequence that reads CPSR, not Dst, so Dst alone going unread must
// not make the flag update itself eligible for removal). The
// optimizer's dead-variable elimination pass may only drop opcodes for
// which this is false.
func HasSideEffect(op Op) bool {
	switch x := op.(type) {
	case StoreGPR, StoreCPSR, STR, AdvancePC, Flush, FlushExchange:
		return true
	case MOV:
		return x.SetFlags
	case Add:
		return x.SetFlags
	case Sub:
		return x.SetFlags
	case Shift:
		return x.SetFlags
	default:
		return false
	}
}

// Dst returns the variable op writes, if any.
func Dst(op Op) (*Variable, bool) {
	switch x := op.(type) {
	case LoadGPR:
		return x.Dst, true
	case LoadCPSR:
		return x.Dst, true
	case MOV:
		return x.Dst, true
	case Add:
		return x.Dst, true
	case Sub:
		return x.Dst, true
	case Shift:
		return x.Dst, true
	case LDR:
		return x.Dst, true
	case UpdateNZCV:
		return x.Dst, true
	default:
		return nil, false
	}
}
