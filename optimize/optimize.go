// Package optimize implements component D: a per-micro-block pass run
// after translation and before codegen. It preserves every externally
// visible effect (guest-register writes, memory ops, CPSR writes, PC
// advances and flushes) and respects SSA.
//
// There is no direct teacher analogue for an IR-to-IR optimizer (the
// teacher compiler goes straight from IR to its register-coloring
// backend); this pass is grounded structurally on
// compiler/back/back.go's traversal idiom — walk the opcode sequence
// once, switch on concrete type, accumulate into a map — applied to
// the two transformations spec.md requires: dead-variable elimination
// and constant propagation through MOV. Dead-variable elimination
// tracks "used" variables in a bitset.Set keyed by Variable.ID rather
// than a map, since every variable in a micro-block already carries a
// dense id (see ir.MicroBlock.CreateVar).
package optimize

import (
	"github.com/lunatic/jit/bitset"
	"github.com/lunatic/jit/ir"
)

// Optimize rewrites mb in place. It is idempotent: running it twice
// produces the same result as running it once.
func Optimize(mb *ir.MicroBlock) {
	propagateConstants(mb)
	eliminateDeadVariables(mb)
}

// propagateConstants replaces every read of a variable defined by
// `MOV dst, <constant>` with that constant directly, then lets
// eliminateDeadVariables drop the now-unread MOV (unless the MOV also
// sets flags, which is a side effect dead-code elimination must not
// remove).
func propagateConstants(mb *ir.MicroBlock) {
	known := map[*ir.Variable]ir.Constant{}

	for _, op := range mb.Code() {
		if mov, ok := op.(ir.MOV); ok && !mov.Src.IsVar && mov.Dst != nil {
			known[mov.Dst] = mov.Src.Const
		}
	}

	if len(known) == 0 {
		return
	}

	code := mb.Code()
	rewritten := make([]ir.Op, len(code))
	for i, op := range code {
		rewritten[i] = substituteConstants(op, known)
	}
	mb.Replace(rewritten)
}

// substituteConstants returns a copy of op with every Value operand
// that reads a now-constant variable replaced by that constant. Values
// that are not simple variable reads (anything already Const, or a
// variable not in `known`) are left untouched.
func substituteConstants(op ir.Op, known map[*ir.Variable]ir.Constant) ir.Op {
	sub := func(v ir.Value) ir.Value {
		if v.IsVar {
			if c, ok := known[v.Var]; ok {
				return ir.ConstValue(c)
			}
		}
		return v
	}

	switch x := op.(type) {
	case ir.StoreGPR:
		x.Src = sub(x.Src)
		return x
	case ir.StoreCPSR:
		x.Src = sub(x.Src)
		return x
	case ir.MOV:
		x.Src = sub(x.Src)
		return x
	case ir.Add:
		x.LHS, x.RHS = sub(x.LHS), sub(x.RHS)
		return x
	case ir.Sub:
		x.LHS, x.RHS = sub(x.LHS), sub(x.RHS)
		return x
	case ir.Shift:
		x.Src, x.Amount = sub(x.Src), sub(x.Amount)
		return x
	case ir.LDR:
		x.Address = sub(x.Address)
		return x
	case ir.STR:
		x.Address, x.Src = sub(x.Address), sub(x.Src)
		return x
	case ir.UpdateNZCV:
		x.CPSRIn, x.Result = sub(x.CPSRIn), sub(x.Result)
		return x
	case ir.Flush:
		x.Address = sub(x.Address)
		return x
	case ir.FlushExchange:
		x.Address = sub(x.Address)
		return x
	default:
		return op
	}
}

// eliminateDeadVariables drops every opcode whose only purpose was
// defining a variable that is never read and that has no side effect
// of its own (ir.HasSideEffect). It runs to a fixpoint: dropping a dead
// opcode can make the variables it read dead in turn (e.g. LoadGPR v1;
// Shift v2=v1 with v2 unread drops the Shift, which then leaves v1
// unread too), so a single pass would leave such a chain half-dropped
// and violate idempotence.
func eliminateDeadVariables(mb *ir.MicroBlock) {
	for {
		code := mb.Code()

		used := bitset.New()
		for _, op := range code {
			for _, v := range mb.Vars() {
				if op.Reads(v) {
					used.Add(v.ID)
				}
			}
		}

		kept := code[:0:0]
		changed := false
		for _, op := range code {
			dst, hasDst := ir.Dst(op)

			if hasDst && !used.Has(dst.ID) && !ir.HasSideEffect(op) {
				changed = true
				continue
			}

			kept = append(kept, op)
		}

		mb.Replace(kept)

		if !changed {
			return
		}
	}
}
