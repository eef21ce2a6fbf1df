package regalloc

import (
	"testing"

	"github.com/lunatic/jit/arch"
	"github.com/lunatic/jit/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A chain of variables where each one dies before the next is created
// must all end up sharing the single available register: each GetReg
// call expires the previous one before allocating the next.
func TestAllocator_reusesRegisterOnceVariableExpires(t *testing.T) {
	mb := ir.NewMicroBlock()
	v1 := mb.CreateVar(ir.U32, "v1")
	v2 := mb.CreateVar(ir.U32, "v2")
	mb.Append(ir.LoadGPR{Dst: v1, Reg: arch.GuestReg{Reg: arch.R0}})
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R1}, Src: ir.VarValue(v1)})
	mb.Append(ir.LoadGPR{Dst: v2, Reg: arch.GuestReg{Reg: arch.R2}})
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R3}, Src: ir.VarValue(v2)})

	a := New(mb, []HostReg{7})

	r1, err := a.GetReg(v1, 0)
	require.NoError(t, err)

	r1again, err := a.GetReg(v1, 1)
	require.NoError(t, err)
	assert.Equal(t, r1, r1again, "repeated GetReg for the same live variable returns the same register")

	r2, err := a.GetReg(v2, 2)
	require.NoError(t, err)
	assert.Equal(t, r1, r2, "v1 expired at index 1, so its register is free for v2 at index 2")
}

// Two variables simultaneously live at the same program point must
// never be mapped to the same register (property 3, register
// disjointness).
func TestAllocator_disjointRegistersForSimultaneouslyLiveVariables(t *testing.T) {
	mb := ir.NewMicroBlock()
	v1 := mb.CreateVar(ir.U32, "v1")
	v2 := mb.CreateVar(ir.U32, "v2")
	sum := mb.CreateVar(ir.U32, "sum")
	mb.Append(ir.LoadGPR{Dst: v1, Reg: arch.GuestReg{Reg: arch.R0}})
	mb.Append(ir.LoadGPR{Dst: v2, Reg: arch.GuestReg{Reg: arch.R1}})
	mb.Append(ir.Add{Dst: sum, LHS: ir.VarValue(v1), RHS: ir.VarValue(v2)})
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R2}, Src: ir.VarValue(sum)})

	a := New(mb, []HostReg{5, 6})

	r1, err := a.GetReg(v1, 0)
	require.NoError(t, err)
	r2, err := a.GetReg(v2, 1)
	require.NoError(t, err)

	assert.NotEqual(t, r1, r2, "v1 and v2 are both live at index 2 (the Add) and must not share a register")
}

// Statically reserved host registers are simply never present in the
// free list handed to New; GetReg can then never return one (property
// 4, no reserved-register allocation).
func TestAllocator_neverAllocatesRegisterOutsideFreeList(t *testing.T) {
	mb := ir.NewMicroBlock()
	v := mb.CreateVar(ir.U32, "v")
	mb.Append(ir.LoadGPR{Dst: v, Reg: arch.GuestReg{Reg: arch.R0}})
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R1}, Src: ir.VarValue(v)})

	reserved := map[HostReg]bool{0: true, 1: true}
	free := []HostReg{2, 3, 4}

	a := New(mb, free)

	reg, err := a.GetReg(v, 0)
	require.NoError(t, err)
	assert.False(t, reserved[reg], "allocator returned a register outside its free list: %d", reg)
}

// Asking for more simultaneously live variables than the free list has
// room for is a fatal, non-recoverable error: there is no spilling
// (property 8 / spec.md §4.E's failure policy).
func TestAllocator_exhaustionIsFatal(t *testing.T) {
	mb := ir.NewMicroBlock()
	v1 := mb.CreateVar(ir.U32, "v1")
	v2 := mb.CreateVar(ir.U32, "v2")
	v3 := mb.CreateVar(ir.U32, "v3")
	sum := mb.CreateVar(ir.U32, "sum")
	mb.Append(ir.LoadGPR{Dst: v1, Reg: arch.GuestReg{Reg: arch.R0}})
	mb.Append(ir.LoadGPR{Dst: v2, Reg: arch.GuestReg{Reg: arch.R1}})
	mb.Append(ir.LoadGPR{Dst: v3, Reg: arch.GuestReg{Reg: arch.R2}})
	mb.Append(ir.Add{Dst: sum, LHS: ir.VarValue(v1), RHS: ir.VarValue(v2)})
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R3}, Src: ir.VarValue(v3)})

	// Only two registers for three variables (v1, v2, v3) that are all
	// still live by the time v3 is allocated.
	a := New(mb, []HostReg{8, 9})

	_, err := a.GetReg(v1, 0)
	require.NoError(t, err)
	_, err = a.GetReg(v2, 1)
	require.NoError(t, err)

	_, err = a.GetReg(v3, 2)
	require.Error(t, err)

	var exhaustion ExhaustionError
	require.ErrorAs(t, err, &exhaustion)
	assert.Equal(t, v3, exhaustion.Var)
}

// Expire reports the last index that reads or writes a variable;
// property 2 (liveness well-formedness) requires every read to occur
// at or before that index.
func TestAllocator_expireMatchesLastReadOrWrite(t *testing.T) {
	mb := ir.NewMicroBlock()
	v := mb.CreateVar(ir.U32, "v")
	mb.Append(ir.LoadGPR{Dst: v, Reg: arch.GuestReg{Reg: arch.R0}})       // index 0: write
	mb.Append(ir.AdvancePC{Amount: 4})                                    // index 1: unrelated
	mb.Append(ir.StoreGPR{Reg: arch.GuestReg{Reg: arch.R1}, Src: ir.VarValue(v)}) // index 2: read

	a := New(mb, []HostReg{0})

	point, ok := a.Expire(v)
	require.True(t, ok)
	assert.Equal(t, 2, point)
}
