// Package translate implements component C: the decoder/translator
// that turns a sequential run of guest instructions into IR, ending
// the block at the first instruction that cannot continue in
// straight-line form.
//
// Structurally this is grounded on the teacher compiler's
// compiler/front (compileBlock/compileExpr: ctx-threaded functions
// returning a value and a wrapped error) and compiler/back/back.go's
// switch-per-opcode traversal style applied to instruction handlers
// instead of IR nodes. The actual per-instruction semantics — operand2
// construction, the ROM shortcut, termination rules — are a close port
// of original_source/src/frontend/translator/handle/data_processing.cpp
// and single_data_transfer.cpp.
package translate

import (
	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/block"
	"github.com/lunatic/jit/ir"
	"github.com/lunatic/jit/memory"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// EmptyBlockError is returned when translation produced no IR
// whatsoever: the first instruction at the block's PC was already
// unimplemented. An unimplemented instruction later in the block is
// not an error — it simply closes the block, keeping the translated
// prefix, mirroring jit.cpp's length > 0 check.
type EmptyBlockError struct {
	PC    uint32
	Thumb bool
}

func (e EmptyBlockError) Error() string {
	return errors.New("unknown opcode at pc=%#08x (thumb=%v)", e.PC, e.Thumb).Error()
}

// instrCycles is the fixed base cycle cost charged per translated
// instruction before any additional data_cycles.
const instrCycles = 1

// Translator decodes guest instructions starting from a BasicBlock's
// Key and emits IR into the block's current MicroBlock.
type Translator struct {
	// ARMv5TE enables the interworking (FlushExchange) behavior for
	// loads into PC; when false, a load into PC emits a plain Flush
	// and the T-bit never changes.
	ARMv5TE bool
}

// emitCtx carries the per-block state the handlers thread through:
// the block being built, its active micro-block, and where in the
// guest address space we currently are.
type emitCtx struct {
	bb   *block.BasicBlock
	mb   *ir.MicroBlock
	mem  memory.Memory
	mode arch.Mode

	thumb       bool
	opcodeSize  uint32 // 4 in ARM state, 2 in Thumb state
	codeAddress uint32 // address of the instruction currently being translated

	armv5te bool
}

// Translate populates bb by decoding guest instructions sequentially
// from bb.Key, terminating at the first instruction that cannot
// continue in straight-line form. An unimplemented instruction simply
// closes the block and keeps the translated prefix; Translate only
// returns an error when nothing could be translated at all.
func (t *Translator) Translate(bb *block.BasicBlock, mem memory.Memory) error {
	key := bb.Key

	opcodeSize := uint32(4)
	if key.Thumb() {
		opcodeSize = 2
	}

	ctx := &emitCtx{
		bb:          bb,
		mb:          bb.CurrentMicroBlock(),
		mem:         mem,
		mode:        key.Mode(),
		thumb:       key.Thumb(),
		opcodeSize:  opcodeSize,
		codeAddress: key.PC(),
		armv5te:     t.ARMv5TE,
	}

	for {
		var (
			status Status
			err    error
		)

		if ctx.thumb {
			status, err = t.stepThumb(ctx)
		} else {
			status, err = t.stepARM(ctx)
		}

		if err != nil {
			return err
		}

		if status == Unimplemented {
			tlog.V("translate").Printw("unimplemented opcode", "pc", ctx.codeAddress,
				"thumb", ctx.thumb, "from", loc.Callers(1, 3))

			// An unimplemented instruction simply closes the block,
			// keeping whatever prefix already translated: jit.cpp only
			// ever raises "unknown opcode" when the block's length is
			// still zero. Gating on bb.Length rather than bb.Empty()
			// matters: a handler can emit IR for its operands (e.g. a
			// register-shifted operand2) before discovering its opcode
			// is unimplemented, which would otherwise leave a non-empty
			// block with no cycles charged for its first instruction.
			if bb.Length == 0 {
				return EmptyBlockError{PC: ctx.codeAddress, Thumb: ctx.thumb}
			}
			break
		}

		bb.Length += instrCycles

		if status == BreakBasicBlock {
			break
		}

		ctx.codeAddress += ctx.opcodeSize
	}

	bb.Length += ctx.mb.DataCycles

	tlog.V("translate").Printw("block translated", "key", bb.Key, "length", bb.Length,
		"fast_dispatch", bb.EnableFastDispatch)

	return nil
}

func (t *Translator) stepARM(ctx *emitCtx) (Status, error) {
	word := ctx.mem.Read32(memory.CodeBus, ctx.codeAddress)

	switch classify(word) {
	case classDataProcessing:
		return t.handleDataProcessing(ctx, word)
	case classSingleDataTransfer:
		return t.handleSingleDataTransfer(ctx, word)
	default:
		return Unimplemented, nil
	}
}

func (t *Translator) stepThumb(ctx *emitCtx) (Status, error) {
	word := uint32(ctx.mem.Read16(memory.CodeBus, ctx.codeAddress))

	// Thumb format 6: LDR Rd, [PC, #imm8*4] -- 0100 1ddd iiiiiiii.
	if word&0xF800 == 0x4800 {
		return t.handleThumbPCRelativeLoad(ctx, word)
	}

	return Unimplemented, nil
}

// --- shared emitter helpers -------------------------------------------------

func emitAdvancePC(ctx *emitCtx) {
	ctx.mb.Append(ir.AdvancePC{Amount: ctx.opcodeSize})
}

func emitLoadGPR(ctx *emitCtx, reg int, tag string) *ir.Variable {
	v := ctx.mb.CreateVar(ir.U32, tag)
	ctx.mb.Append(ir.LoadGPR{Dst: v, Reg: arch.GuestReg{Mode: ctx.mode, Reg: reg}})
	return v
}

func emitStoreGPR(ctx *emitCtx, reg int, src ir.Value) {
	ctx.mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Mode: ctx.mode, Reg: reg}, Src: src})
}

func emitShift(ctx *emitCtx, typ int, src, amount ir.Value, setFlags bool, tag string) *ir.Variable {
	v := ctx.mb.CreateVar(ir.U32, tag)
	ctx.mb.Append(ir.Shift{Type: ir.ShiftType(typ), Dst: v, Src: src, Amount: amount, SetFlags: setFlags})
	return v
}

// emitFlagWriteback emits LoadCPSR, UpdateNZCV, StoreCPSR in that
// order so the guest-visible flag update is atomic: no other CPSR
// access may be interleaved between the load and the store.
func emitFlagWriteback(ctx *emitCtx, result ir.Value) {
	cpsrIn := ctx.mb.CreateVar(ir.U32, "cpsr_in")
	ctx.mb.Append(ir.LoadCPSR{Dst: cpsrIn})

	cpsrOut := ctx.mb.CreateVar(ir.U32, "cpsr_out")
	ctx.mb.Append(ir.UpdateNZCV{Dst: cpsrOut, CPSRIn: ir.VarValue(cpsrIn), Result: result})

	ctx.mb.Append(ir.StoreCPSR{Src: ir.VarValue(cpsrOut)})
}
