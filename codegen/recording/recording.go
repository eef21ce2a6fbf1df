// Package recording is the mock Assembler collaborator the design
// notes call for: "testing the core does not require a working
// emitter — a recording mock suffices to verify IR and allocation."
// It never produces host bytes; it records each call so tests can
// assert on the sequence of operations the emitter drove.
package recording

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/codegen"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/regalloc"
)

// Call is one recorded Assembler invocation.
type Call struct {
	Op   string
	Args []any
}

// Assembler records every call it receives, in order.
type Assembler struct {
	Calls []Call
}

func New() *Assembler { return &Assembler{} }

func (a *Assembler) record(op string, args ...any) {
	a.Calls = append(a.Calls, Call{Op: op, Args: args})
}

func (a *Assembler) Prologue() { a.record("Prologue") }
func (a *Assembler) Epilogue() { a.record("Epilogue") }

func (a *Assembler) MOV(dst regalloc.HostReg, src codegen.Operand) { a.record("MOV", dst, src) }

func (a *Assembler) Add(dst regalloc.HostReg, lhs, rhs codegen.Operand, setFlags bool) {
	a.record("Add", dst, lhs, rhs, setFlags)
}

func (a *Assembler) Sub(dst regalloc.HostReg, lhs, rhs codegen.Operand, setFlags bool) {
	a.record("Sub", dst, lhs, rhs, setFlags)
}

func (a *Assembler) Shift(typ ir.ShiftType, dst regalloc.HostReg, src, amount codegen.Operand, setFlags bool) {
	a.record("Shift", typ, dst, src, amount, setFlags)
}

func (a *Assembler) LoadGPR(dst regalloc.HostReg, reg arch.GuestReg) { a.record("LoadGPR", dst, reg) }

func (a *Assembler) StoreGPR(reg arch.GuestReg, src codegen.Operand) {
	a.record("StoreGPR", reg, src)
}

func (a *Assembler) LoadCPSR(dst regalloc.HostReg) { a.record("LoadCPSR", dst) }

func (a *Assembler) StoreCPSR(src codegen.Operand) { a.record("StoreCPSR", src) }

func (a *Assembler) UpdateNZCV(dst regalloc.HostReg, cpsrIn, result codegen.Operand) {
	a.record("UpdateNZCV", dst, cpsrIn, result)
}

func (a *Assembler) LDR(dst regalloc.HostReg, address codegen.Operand, width ir.LoadStoreWidth) {
	a.record("LDR", dst, address, width)
}

func (a *Assembler) STR(address, src codegen.Operand, width ir.LoadStoreWidth) {
	a.record("STR", address, src, width)
}

func (a *Assembler) AdvancePC(amount uint32) { a.record("AdvancePC", amount) }

func (a *Assembler) Flush(address codegen.Operand) { a.record("Flush", address) }

func (a *Assembler) FlushExchange(address codegen.Operand) { a.record("FlushExchange", address) }
