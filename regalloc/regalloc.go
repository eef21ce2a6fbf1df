// Package regalloc implements component E: linear-scan allocation of
// IR variables to host registers over a single micro-block.
//
// This is close to a line-for-line port of
// original_source/src/backend/x86_64/register_allocator.cpp's
// X64RegisterAllocator: CreateVariableExpirationPoints, ExpireVariables
// and a pop-from-back free list, generalized from a fixed x86 register
// set to an arch-neutral HostReg. The teacher's compiler/back/back.go
// and back4.go contributed the Go idiom for holding allocator working
// state as a struct of maps threaded through the pass, rather than the
// C++ original's member fields.
package regalloc

import (
	"github.com/lunatic/jit/ir"
	"tlog.app/go/errors"
)

// HostReg is an opaque host register index. The allocator never
// interprets it beyond identity and membership in the free list; the
// code emitter maps it to a real machine register.
type HostReg int

// ExhaustionError is returned when GetReg is asked for a register and
// the free list is empty after expiration. There is no spilling: this
// is fatal for the block being compiled.
type ExhaustionError struct {
	Index int
	Var   *ir.Variable
}

func (e ExhaustionError) Error() string {
	return errors.New("register allocator exhausted at index %d allocating %s", e.Index, e.Var).Error()
}

// Allocator performs single-pass linear-scan allocation over one
// micro-block's IR. Construct with New, then call GetReg once per
// operand, in program order, reads before writes (as codegen.Emit
// does).
type Allocator struct {
	code []ir.Op
	vars []*ir.Variable

	expire map[*ir.Variable]int // var -> largest index that reads or writes it

	freeList   []HostReg // pop-from-end LIFO; order is deterministic, not contractual
	allocation map[*ir.Variable]HostReg
}

// New builds an Allocator for mb, seeded with the given free list of
// allocatable host registers. free must already exclude every register
// statically reserved for the dispatcher; New does not filter it.
func New(mb *ir.MicroBlock, free []HostReg) *Allocator {
	a := &Allocator{
		code:       mb.Code(),
		vars:       mb.Vars(),
		freeList:   append([]HostReg(nil), free...),
		allocation: map[*ir.Variable]HostReg{},
	}

	a.computeExpirationPoints()

	return a
}

// computeExpirationPoints is CreateVariableExpirationPoints ported
// directly: for each variable, scan the whole opcode list and record
// the last index that reads or writes it. Variables with no such index
// (dead after the optimizer, or created but never emitted into) are
// left out of the map and are never allocated.
func (a *Allocator) computeExpirationPoints() {
	a.expire = make(map[*ir.Variable]int, len(a.vars))

	for _, v := range a.vars {
		point := -1

		for i, op := range a.code {
			if op.Writes(v) || op.Reads(v) {
				point = i
			}
		}

		if point != -1 {
			a.expire[v] = point
		}
	}
}

// Expire returns the largest opcode index at which v is still live, or
// (0, false) if v was never allocated a liveness range (dead).
func (a *Allocator) Expire(v *ir.Variable) (int, bool) {
	i, ok := a.expire[v]
	return i, ok
}

// expireVariables returns to the free list every currently-allocated
// variable whose expiration point is strictly before index, exactly as
// ExpireVariables does in the original.
func (a *Allocator) expireVariables(index int) {
	for _, v := range a.vars {
		point, ok := a.expire[v]
		if !ok {
			continue
		}

		if index > point {
			if reg, ok := a.allocation[v]; ok {
				a.freeList = append(a.freeList, reg)
				delete(a.allocation, v)
			}
		}
	}
}

// GetReg returns the host register bound to v at program point index,
// allocating one if v is not yet bound. The expiration pass runs
// before every allocation so registers are recycled at the earliest
// legal point, per spec: callers must invoke this with index
// non-decreasing across a single pass over the block's opcodes.
func (a *Allocator) GetReg(v *ir.Variable, index int) (HostReg, error) {
	if reg, ok := a.allocation[v]; ok {
		return reg, nil
	}

	a.expireVariables(index)

	if len(a.freeList) == 0 {
		return 0, ExhaustionError{Index: index, Var: v}
	}

	reg := a.freeList[len(a.freeList)-1]
	a.freeList = a.freeList[:len(a.freeList)-1]
	a.allocation[v] = reg

	return reg, nil
}

// Allocation returns the register currently bound to v, if any. Used
// by tests to check register disjointness/no-reserved-register
// invariants after a full pass.
func (a *Allocator) Allocation(v *ir.Variable) (HostReg, bool) {
	reg, ok := a.allocation[v]
	return reg, ok
}
