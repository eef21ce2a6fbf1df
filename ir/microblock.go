package ir

import "tlog.app/go/tlog"

// MicroBlock is an IR emitter: an arena that owns every Variable and
// Op created through it. A BasicBlock starts with one MicroBlock; the
// design leaves room for more (to split a block into several
// optimization scopes) but the translator only ever opens one.
type MicroBlock struct {
	code []Op
	vars []*Variable

	// DataCycles counts guest cycles consumed by memory-transfer
	// instructions translated into this block, on top of each
	// instruction's fixed base cycle count.
	DataCycles int

	nextVarID int
}

// NewMicroBlock returns an empty emitter.
func NewMicroBlock() *MicroBlock {
	return &MicroBlock{}
}

// CreateVar allocates a fresh SSA variable owned by this block. The
// returned pointer is stable for the block's lifetime and must never be
// referenced from any other MicroBlock.
func (m *MicroBlock) CreateVar(t DataType, tag string) *Variable {
	v := &Variable{ID: m.nextVarID, Type: t, Tag: tag}
	m.nextVarID++
	m.vars = append(m.vars, v)
	return v
}

// Append adds op as the next instruction in program order.
func (m *MicroBlock) Append(op Op) {
	m.code = append(m.code, op)
	tlog.V("ir").Printw("emit", "index", len(m.code)-1, "op", op, "val", op)
}

// Code returns the opcode sequence in insertion order. Callers must not
// mutate the returned slice; use Replace to rewrite it.
func (m *MicroBlock) Code() []Op { return m.code }

// Vars returns every variable created by this block, in creation order.
func (m *MicroBlock) Vars() []*Variable { return m.vars }

// Replace installs code as the block's new opcode sequence. Optimizer
// passes use this to rewrite the block in place while preserving the
// Variable identities already handed out.
func (m *MicroBlock) Replace(code []Op) { m.code = code }

// Len reports the number of opcodes currently in the block.
func (m *MicroBlock) Len() int { return len(m.code) }
