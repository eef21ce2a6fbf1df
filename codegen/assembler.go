// Package codegen implements component F: it walks a MicroBlock's IR
// in order, asks a regalloc.Allocator for host registers for each
// opcode's operands (reads before writes), and asks an Assembler to
// turn that into host code.
//
// Detailed host encodings are delegated entirely to the Assembler
// collaborator, following the design note that the emitter is "an
// external service with a narrow interface" — modeled on the teacher
// compiler's compiler/asm package (a tagged Instr union of
// Imm/Add/Mov/Cmp/B/BCond, each naming its Out/In registers) and on
// compiler/back/back.go's use of a small Arch interface
// (Alloc/Free) to keep the backend itself architecture-agnostic.
package codegen

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/regalloc"
)

// Operand is a resolved IR value ready for the assembler: either a host
// register (an IR variable the allocator placed) or an immediate (an
// IR constant, which never occupies a register).
type Operand struct {
	IsImm bool
	Imm   uint32
	Reg   regalloc.HostReg
}

// Assembler is the narrow interface the code emitter drives. One
// method per IR opcode, named the way the design notes prescribe
// (emit_mov_reg_imm32, emit_add_reg_reg, ...) but spelled as exported
// Go methods. Implementations never see IR types directly, only
// resolved operands — this is what lets codegen/recording stand in for
// a real host assembler in tests.
type Assembler interface {
	Prologue()
	Epilogue()

	MOV(dst regalloc.HostReg, src Operand)
	Add(dst regalloc.HostReg, lhs, rhs Operand, setFlags bool)
	Sub(dst regalloc.HostReg, lhs, rhs Operand, setFlags bool)
	Shift(typ ir.ShiftType, dst regalloc.HostReg, src, amount Operand, setFlags bool)

	LoadGPR(dst regalloc.HostReg, reg arch.GuestReg)
	StoreGPR(reg arch.GuestReg, src Operand)
	LoadCPSR(dst regalloc.HostReg)
	StoreCPSR(src Operand)
	UpdateNZCV(dst regalloc.HostReg, cpsrIn, result Operand)

	LDR(dst regalloc.HostReg, address Operand, width ir.LoadStoreWidth)
	STR(address, src Operand, width ir.LoadStoreWidth)

	AdvancePC(amount uint32)
	Flush(address Operand)
	FlushExchange(address Operand)
}
