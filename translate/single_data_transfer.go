package translate

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/memory"
)

// haltcntOffset is the guest offset STRB targets when the write might
// be a HALTCNT-style control register access. The exact address is a
// platform convention the translator is told about; 0x301 matches the
// original JIT's own constant.
const haltcntOffset = 0x301

// handleSingleDataTransfer translates one ARM LDR/STR(B) instruction.
// Ported from original_source's Translator::Handle(ARMSingleDataTransfer
// const&): the PC-relative ROM shortcut, pre/post-indexed effective
// address computation, the AdvancePC-before-transfer and
// writeback-before-load-after-store ordering, the HALTCNT-write
// fast-dispatch veto, and the PC-destination flush/flush-exchange
// termination.
func (t *Translator) handleSingleDataTransfer(ctx *emitCtx, word uint32) (Status, error) {
	d := decodeSingleDataTransfer(word)

	if d.cond != CondAL {
		return Unimplemented, nil
	}

	if !d.preIncrement && d.writeback {
		// LDRT/STRT: not supported.
		return Unimplemented, nil
	}

	mightBeHaltcntWrite := !d.load && d.byte && d.immediate && d.offsetImm == haltcntOffset

	if d.regBase == arch.PC && !d.writeback && d.preIncrement && d.load && d.immediate {
		address := (ctx.codeAddress &^ 3) + ctx.opcodeSize*2 + d.offsetImm

		if memory.InROM(ctx.mem, address) {
			data := ctx.mb.CreateVar(ir.U32, "data")

			var literal uint32
			if d.byte {
				literal = uint32(ctx.mem.FastRead8(memory.DataBus, address))
			} else {
				literal = ctx.mem.FastRead32(memory.DataBus, address)
			}

			ctx.mb.Append(ir.MOV{Dst: data, Src: ir.ImmValue(ir.U32, literal)})
			emitStoreGPR(ctx, d.regDst, ir.VarValue(data))
			emitAdvancePC(ctx)
			ctx.mb.DataCycles++

			return Continue, nil
		}
	}

	var offset ir.Value

	if d.immediate {
		offset = ir.ImmValue(ir.U32, d.offsetImm)
	} else {
		offsetReg := emitLoadGPR(ctx, d.offsetReg, "base_offset_reg")
		offsetVar := emitShift(ctx, d.offsetShiftType, ir.VarValue(offsetReg),
			ir.ImmValue(ir.U32, d.offsetShiftAmt), false, "base_offset_shifted")
		offset = ir.VarValue(offsetVar)
	}

	baseOld := ctx.mb.CreateVar(ir.U32, "base_old")
	if d.regBase == arch.PC {
		// Thumb PC-relative addressing word-aligns PC before forming
		// the address so that no rotated read happens.
		literalBase := (ctx.codeAddress &^ 3) + ctx.opcodeSize*2
		ctx.mb.Append(ir.MOV{Dst: baseOld, Src: ir.ImmValue(ir.U32, literalBase)})
	} else {
		ctx.mb.Append(ir.MOV{Dst: baseOld, Src: ir.VarValue(emitLoadGPR(ctx, d.regBase, "base_old_src"))})
	}

	baseNew := ctx.mb.CreateVar(ir.U32, "base_new")
	if d.add {
		ctx.mb.Append(ir.Add{Dst: baseNew, LHS: ir.VarValue(baseOld), RHS: offset})
	} else {
		ctx.mb.Append(ir.Sub{Dst: baseNew, LHS: ir.VarValue(baseOld), RHS: offset})
	}

	address := ir.VarValue(baseOld)
	if d.preIncrement {
		address = ir.VarValue(baseNew)
	}

	emitAdvancePC(ctx)

	writeback := func() {
		if !d.preIncrement || d.writeback {
			emitStoreGPR(ctx, d.regBase, ir.VarValue(baseNew))
		}
	}

	if d.load {
		writeback()

		data := ctx.mb.CreateVar(ir.U32, "data")
		ldrWidth := ir.Word
		if d.byte {
			ldrWidth = ir.Byte
		} else {
			ldrWidth = ir.WordRotate
		}
		ctx.mb.Append(ir.LDR{Dst: data, Address: address, Width: ldrWidth})
		emitStoreGPR(ctx, d.regDst, ir.VarValue(data))
	} else {
		data := emitLoadGPR(ctx, d.regDst, "data")

		strWidth := ir.Word
		if d.byte {
			strWidth = ir.Byte
		}
		ctx.mb.Append(ir.STR{Address: address, Src: ir.VarValue(data), Width: strWidth})

		writeback()
	}

	ctx.mb.DataCycles++

	if d.load && d.regDst == arch.PC {
		pcVal := emitLoadGPR(ctx, arch.PC, "address")

		if ctx.armv5te {
			ctx.mb.Append(ir.FlushExchange{Address: ir.VarValue(pcVal)})
		} else {
			ctx.mb.Append(ir.Flush{Address: ir.VarValue(pcVal)})
		}

		return BreakBasicBlock, nil
	}

	if mightBeHaltcntWrite {
		ctx.bb.EnableFastDispatch = false
		return BreakBasicBlock, nil
	}

	return Continue, nil
}

// handleThumbPCRelativeLoad translates the Thumb "LDR Rd, [PC, #imm8]"
// literal-pool load (format 6). It is the only Thumb instruction this
// staged translator decodes; everything else is Unimplemented. Address
// computation follows the same PC-alignment rule as the ARM path:
// (code_address & ~3) + 2*opcode_size + imm8*4.
func (t *Translator) handleThumbPCRelativeLoad(ctx *emitCtx, word uint32) (Status, error) {
	regD := int(bits(word, 10, 8))
	imm8 := bits(word, 7, 0)
	offsetImm := imm8 * 4

	address := (ctx.codeAddress &^ 3) + ctx.opcodeSize*2 + offsetImm

	if memory.InROM(ctx.mem, address) {
		data := ctx.mb.CreateVar(ir.U32, "data")
		literal := ctx.mem.FastRead32(memory.DataBus, address)

		ctx.mb.Append(ir.MOV{Dst: data, Src: ir.ImmValue(ir.U32, literal)})
		emitStoreGPR(ctx, regD, ir.VarValue(data))
		emitAdvancePC(ctx)
		ctx.mb.DataCycles++

		return Continue, nil
	}

	baseOld := ctx.mb.CreateVar(ir.U32, "base_old")
	ctx.mb.Append(ir.MOV{Dst: baseOld, Src: ir.ImmValue(ir.U32, address)})

	emitAdvancePC(ctx)

	data := ctx.mb.CreateVar(ir.U32, "data")
	ctx.mb.Append(ir.LDR{Dst: data, Address: ir.VarValue(baseOld), Width: ir.WordRotate})
	emitStoreGPR(ctx, regD, ir.VarValue(data))

	ctx.mb.DataCycles++

	return Continue, nil
}
