// Package hostsim is the code emitter's in-repo "host": an Assembler
// that, instead of encoding real machine bytes, compiles a sequence of
// Go closures operating on a small fixed-size register file plus the
// shared guest.State and memory.Memory. Sealed, it produces exactly
// the block.NativeFunc the design calls for (a zero-argument function
// pointer a BasicBlock owns), so the dispatcher, cache and end-to-end
// scenario tests exercise a real execution path without this repo
// needing to own a host ISA encoder — spec.md §1 treats host
// instruction encoding as an external collaborator, and this is the
// reference collaborator the rest of the pipeline is tested against.
package hostsim

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/block"
	"github.com/lunatic/jit/codegen"
	"github.com/lunatic/jit/guest"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/memory"
	"github.com/lunatic/jit/regalloc"
)

// NumHostRegs is the size of the simulated host register file.
const NumHostRegs = 16

// Reserved lists the host registers statically reserved for the
// dispatcher; regalloc's free list must never include them. X0 carries
// the CPU/state pointer in a real calling convention, X1 the guest
// memory pointer — here those are just the two indices hostsim itself
// refuses to hand out.
var Reserved = []regalloc.HostReg{0, 1}

// FreeList is every host register available for allocation: every
// index below NumHostRegs that is not in Reserved.
func FreeList() []regalloc.HostReg {
	reserved := map[regalloc.HostReg]bool{}
	for _, r := range Reserved {
		reserved[r] = true
	}

	var free []regalloc.HostReg
	for r := regalloc.HostReg(NumHostRegs - 1); r >= 0; r-- {
		if !reserved[r] {
			free = append(free, r)
		}
	}
	return free
}

type regs [NumHostRegs]uint32

type step func(r *regs, st *guest.State, mem memory.Memory)

// Assembler builds a closure program bound to one guest.State and
// memory.Memory pair. Every BasicBlock compiled for a given CPU shares
// the same State/Memory, so a fresh Assembler is created per block at
// compile time and Sealed once translation of that block finishes.
type Assembler struct {
	state *guest.State
	mem   memory.Memory

	steps []step
}

// New returns an Assembler that will emit against state and mem.
func New(state *guest.State, mem memory.Memory) *Assembler {
	return &Assembler{state: state, mem: mem}
}

func readOperand(r *regs, op codegen.Operand) uint32 {
	if op.IsImm {
		return op.Imm
	}
	return r[op.Reg]
}

func (a *Assembler) Prologue() {}
func (a *Assembler) Epilogue() {}

func (a *Assembler) MOV(dst regalloc.HostReg, src codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		r[dst] = readOperand(r, src)
	})
}

func (a *Assembler) Add(dst regalloc.HostReg, lhs, rhs codegen.Operand, setFlags bool) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		r[dst] = readOperand(r, lhs) + readOperand(r, rhs)
	})
}

func (a *Assembler) Sub(dst regalloc.HostReg, lhs, rhs codegen.Operand, setFlags bool) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		r[dst] = readOperand(r, lhs) - readOperand(r, rhs)
	})
}

func (a *Assembler) Shift(typ ir.ShiftType, dst regalloc.HostReg, src, amount codegen.Operand, setFlags bool) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		v := readOperand(r, src)
		n := readOperand(r, amount) & 0xFF

		switch typ {
		case ir.LSL:
			if n >= 32 {
				r[dst] = 0
			} else {
				r[dst] = v << n
			}
		case ir.LSR:
			if n >= 32 {
				r[dst] = 0
			} else {
				r[dst] = v >> n
			}
		case ir.ASR:
			if n >= 32 {
				n = 31
			}
			r[dst] = uint32(int32(v) >> n)
		case ir.ROR:
			n &= 31
			if n == 0 {
				r[dst] = v
			} else {
				r[dst] = (v >> n) | (v << (32 - n))
			}
		}
	})
}

func (a *Assembler) LoadGPR(dst regalloc.HostReg, reg arch.GuestReg) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		r[dst] = *st.GPR(reg.Mode, reg.Reg)
	})
}

func (a *Assembler) StoreGPR(reg arch.GuestReg, src codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		*st.GPR(reg.Mode, reg.Reg) = readOperand(r, src)
	})
}

func (a *Assembler) LoadCPSR(dst regalloc.HostReg) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		r[dst] = *st.CPSR()
	})
}

func (a *Assembler) StoreCPSR(src codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		*st.CPSR() = readOperand(r, src)
	})
}

// UpdateNZCV sets N and Z from result and leaves C/V untouched: carry
// and overflow propagation through the IR is an open question
// SPEC_FULL.md leaves undecided, matching the original JIT's own
// unresolved TODO for this path.
func (a *Assembler) UpdateNZCV(dst regalloc.HostReg, cpsrIn, result codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		cpsr := readOperand(r, cpsrIn)
		res := readOperand(r, result)

		cpsr &^= arch.NBit | arch.ZBit
		if res&0x80000000 != 0 {
			cpsr |= arch.NBit
		}
		if res == 0 {
			cpsr |= arch.ZBit
		}

		r[dst] = cpsr
	})
}

func (a *Assembler) LDR(dst regalloc.HostReg, address codegen.Operand, width ir.LoadStoreWidth) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		addr := readOperand(r, address)

		switch width {
		case ir.Byte:
			r[dst] = uint32(mem.Read8(memory.DataBus, addr))
		case ir.WordRotate:
			aligned := addr &^ 3
			v := mem.Read32(memory.DataBus, aligned)
			rot := (addr & 3) * 8
			if rot != 0 {
				v = (v >> rot) | (v << (32 - rot))
			}
			r[dst] = v
		default:
			r[dst] = mem.Read32(memory.DataBus, addr)
		}
	})
}

func (a *Assembler) STR(address, src codegen.Operand, width ir.LoadStoreWidth) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		addr := readOperand(r, address)
		v := readOperand(r, src)

		if width == ir.Byte {
			mem.Write8(memory.DataBus, addr, uint8(v))
		} else {
			mem.Write32(memory.DataBus, addr, v)
		}
	})
}

func (a *Assembler) AdvancePC(amount uint32) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		pc := st.GPR(st.Mode(), arch.PC)
		*pc += amount
	})
}

func (a *Assembler) Flush(address codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		*st.GPR(st.Mode(), arch.PC) = readOperand(r, address)
	})
}

func (a *Assembler) FlushExchange(address codegen.Operand) {
	a.steps = append(a.steps, func(r *regs, st *guest.State, mem memory.Memory) {
		addr := readOperand(r, address)

		cpsr := st.CPSR()
		if addr&1 != 0 {
			*cpsr |= arch.ThumbBit
		} else {
			*cpsr &^= arch.ThumbBit
		}

		*st.GPR(st.Mode(), arch.PC) = addr &^ 1
	})
}

// Seal wraps the recorded program as a block.NativeFunc. Each call
// gets a fresh, zeroed register file: host registers never carry state
// across block entries.
func (a *Assembler) Seal() block.NativeFunc {
	steps := a.steps
	state := a.state
	mem := a.mem

	return func() {
		var r regs
		for _, s := range steps {
			s(&r, state, mem)
		}
	}
}
