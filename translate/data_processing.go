package translate

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
)

func rotateRight32(v, amount uint32) uint32 {
	amount &= 31
	if amount == 0 {
		return v
	}
	return (v >> amount) | (v << (32 - amount))
}

// handleDataProcessing translates one ARM data-processing instruction.
// Ported from original_source's Translator::handle(ARMDataProcessing
// const&): condition gating, operand2 construction (immediate-rotate
// or register-shift), ADD with the atomic flag writeback, MOV, and the
// destination-PC termination rule.
func (t *Translator) handleDataProcessing(ctx *emitCtx, word uint32) (Status, error) {
	d, sh := decodeDataProcessing(word)

	if d.cond != CondAL {
		return Unimplemented, nil
	}

	if d.setFlags && d.opcode != dpADD {
		return Unimplemented, nil
	}

	if d.regD == arch.PC {
		// Destination-PC writes terminate the block; this staged
		// translator does not yet flush through this path. Bail out
		// before emitting any IR for this instruction at all, so an
		// unimplemented PC write can never leave the block non-empty
		// with no corresponding cycle charged.
		return Unimplemented, nil
	}

	var op2 ir.Value

	if d.immediate {
		value := rotateRight32(d.imm8, d.shift)
		op2 = ir.ImmValue(ir.U32, value)
		// Carry-flag update for immediate op2 shifts is an open
		// question left undecided upstream; this translator does not
		// touch the host carry flag for this path (see SPEC_FULL.md).
	} else {
		source := emitLoadGPR(ctx, d.regM, "shift_source")

		var amount ir.Value
		if sh.regShift {
			amountVar := emitLoadGPR(ctx, sh.shiftAmtReg, "shift_amount")
			amount = ir.VarValue(amountVar)
		} else {
			amount = ir.ImmValue(ir.U32, sh.shiftAmtImm)
		}

		result := emitShift(ctx, sh.typ, ir.VarValue(source), amount, d.setFlags, "shift_result")
		op2 = ir.VarValue(result)
	}

	switch d.opcode {
	case dpADD:
		op1 := emitLoadGPR(ctx, d.regN, "op1")

		result := ctx.mb.CreateVar(ir.U32, "result")
		ctx.mb.Append(ir.Add{Dst: result, LHS: ir.VarValue(op1), RHS: op2, SetFlags: d.setFlags})

		emitStoreGPR(ctx, d.regD, ir.VarValue(result))

		if d.setFlags {
			emitFlagWriteback(ctx, ir.VarValue(result))
		}
	case dpMOV:
		emitStoreGPR(ctx, d.regD, op2)
	default:
		return Unimplemented, nil
	}

	emitAdvancePC(ctx)

	return Continue, nil
}
