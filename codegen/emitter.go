package codegen

import (
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/regalloc"
	"tlog.app/go/errors"
)

// Emit walks mb's opcodes in order and drives asm, using alloc to
// resolve every IR variable operand to a host register. It returns the
// first allocator error encountered (spec.md's "allocator exhaustion
// is a fatal compile error for that block").
func Emit(mb *ir.MicroBlock, alloc *regalloc.Allocator, asm Assembler) error {
	asm.Prologue()

	for i, op := range mb.Code() {
		operand := func(v ir.Value) (Operand, error) {
			if !v.IsVar {
				return Operand{IsImm: true, Imm: v.Const.Value}, nil
			}
			reg, err := alloc.GetReg(v.Var, i)
			if err != nil {
				return Operand{}, err
			}
			return Operand{Reg: reg}, nil
		}

		dst := func(v *ir.Variable) (regalloc.HostReg, error) {
			return alloc.GetReg(v, i)
		}

		var err error

		switch x := op.(type) {
		case ir.LoadGPR:
			var d regalloc.HostReg
			d, err = dst(x.Dst)
			if err == nil {
				asm.LoadGPR(d, x.Reg)
			}
		case ir.StoreGPR:
			var src Operand
			src, err = operand(x.Src)
			if err == nil {
				asm.StoreGPR(x.Reg, src)
			}
		case ir.LoadCPSR:
			var d regalloc.HostReg
			d, err = dst(x.Dst)
			if err == nil {
				asm.LoadCPSR(d)
			}
		case ir.StoreCPSR:
			var src Operand
			src, err = operand(x.Src)
			if err == nil {
				asm.StoreCPSR(src)
			}
		case ir.MOV:
			var src Operand
			var d regalloc.HostReg
			if src, err = operand(x.Src); err == nil {
				if d, err = dst(x.Dst); err == nil {
					asm.MOV(d, src)
				}
			}
		case ir.Add:
			var lhs, rhs Operand
			var d regalloc.HostReg
			if lhs, err = operand(x.LHS); err == nil {
				if rhs, err = operand(x.RHS); err == nil {
					if d, err = dst(x.Dst); err == nil {
						asm.Add(d, lhs, rhs, x.SetFlags)
					}
				}
			}
		case ir.Sub:
			var lhs, rhs Operand
			var d regalloc.HostReg
			if lhs, err = operand(x.LHS); err == nil {
				if rhs, err = operand(x.RHS); err == nil {
					if d, err = dst(x.Dst); err == nil {
						asm.Sub(d, lhs, rhs, x.SetFlags)
					}
				}
			}
		case ir.Shift:
			var src, amount Operand
			var d regalloc.HostReg
			if src, err = operand(x.Src); err == nil {
				if amount, err = operand(x.Amount); err == nil {
					if d, err = dst(x.Dst); err == nil {
						asm.Shift(x.Type, d, src, amount, x.SetFlags)
					}
				}
			}
		case ir.LDR:
			var address Operand
			var d regalloc.HostReg
			if address, err = operand(x.Address); err == nil {
				if d, err = dst(x.Dst); err == nil {
					asm.LDR(d, address, x.Width)
				}
			}
		case ir.STR:
			var address, src Operand
			if address, err = operand(x.Address); err == nil {
				if src, err = operand(x.Src); err == nil {
					asm.STR(address, src, x.Width)
				}
			}
		case ir.UpdateNZCV:
			var cpsrIn, result Operand
			var d regalloc.HostReg
			if cpsrIn, err = operand(x.CPSRIn); err == nil {
				if result, err = operand(x.Result); err == nil {
					if d, err = dst(x.Dst); err == nil {
						asm.UpdateNZCV(d, cpsrIn, result)
					}
				}
			}
		case ir.AdvancePC:
			asm.AdvancePC(x.Amount)
		case ir.Flush:
			var address Operand
			if address, err = operand(x.Address); err == nil {
				asm.Flush(address)
			}
		case ir.FlushExchange:
			var address Operand
			if address, err = operand(x.Address); err == nil {
				asm.FlushExchange(address)
			}
		default:
			err = errors.New("codegen: unhandled opcode %T", op)
		}

		if err != nil {
			return errors.Wrap(err, "emit opcode %d", i)
		}
	}

	asm.Epilogue()

	return nil
}
