// Package ir is the intermediate representation the translator emits
// and the optimizer, register allocator and code emitter consume.
//
// The model follows the teacher compiler's tagged-struct style
// (compiler/ir/ir2.go in this repository's history): opcodes are plain
// structs, not a class hierarchy, and every opcode exposes Reads/Writes
// so generic passes (liveness, dead-code elimination) never need a type
// switch of their own.
package ir

// DataType is the width of an IR value. The guest is 32-bit but
// sub-word transfers (LDRB/STRB) need to track narrower types through
// the pipeline.
type DataType int

const (
	U8 DataType = iota
	U16
	U32
)

func (t DataType) String() string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	default:
		return "?"
	}
}

// Variable is an SSA value: exactly one opcode in the owning MicroBlock
// writes it, any number may read it. Variables never outlive the
// MicroBlock that created them.
type Variable struct {
	ID   int
	Type DataType
	Tag  string
}

func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Tag
}

// Constant is a value-typed immediate. It has no identity: two
// Constants with the same Type and Value are interchangeable and are
// never tracked in a MicroBlock's variable set.
type Constant struct {
	Type  DataType
	Value uint32
}

// Value is the tagged union IRValue from the design: either a Variable
// reference or a Constant.
type Value struct {
	Var   *Variable
	Const Constant
	IsVar bool
}

func VarValue(v *Variable) Value   { return Value{Var: v, IsVar: true} }
func ConstValue(c Constant) Value  { return Value{Const: c} }
func ImmValue(t DataType, n uint32) Value { return Value{Const: Constant{Type: t, Value: n}} }

// references reports whether this value reads variable v.
func (val Value) references(v *Variable) bool {
	return val.IsVar && val.Var == v
}
