package translate

// Cond is the 4-bit ARM condition field. Only AL is translated by this
// staged implementation; every other value decodes successfully but
// its handler immediately returns Unimplemented, matching the original
// JIT's own restriction ("only unconditional (AL) is translated in the
// initial spec").
type Cond uint32

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondCS Cond = 0x2
	CondCC Cond = 0x3
	CondMI Cond = 0x4
	CondPL Cond = 0x5
	CondVS Cond = 0x6
	CondVC Cond = 0x7
	CondHI Cond = 0x8
	CondLS Cond = 0x9
	CondGE Cond = 0xA
	CondLT Cond = 0xB
	CondGT Cond = 0xC
	CondLE Cond = 0xD
	CondAL Cond = 0xE
)

func bits(word uint32, hi, lo int) uint32 {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (word >> lo) & mask
}

func bit(word uint32, n int) bool { return bits(word, n, n) != 0 }

// dpOpcode is the 4-bit data-processing opcode field. Only a few values
// are named; handleDataProcessing translates ADD and MOV, and every
// other value (named or not) maps to Unimplemented there.
type dpOpcode uint32

const (
	dpAND dpOpcode = 0x0
	dpSUB dpOpcode = 0x2
	dpADD dpOpcode = 0x4
	dpCMP dpOpcode = 0xA
	dpMOV dpOpcode = 0xD
)

// armDataProcessing is the decoded ARMDataProcessing instruction: the
// Go equivalent of original_source/src/frontend/translator/handle/
// data_processing.cpp's opcode struct.
type armDataProcessing struct {
	cond      Cond
	opcode    dpOpcode
	setFlags  bool
	immediate bool

	regN  int // Rn, first operand
	regD  int // Rd, destination

	// immediate operand2
	imm8  uint32
	shift uint32 // pre-scaled rotate amount (ROR by 2*shift, here already doubled by the caller... see decode)

	// register operand2
	regM int
}

// shiftSpec is split out to avoid a forward reference
// cycle with the ir package's ShiftType while keeping the decode
// self-contained.
type shiftSpec struct {
	typ        int // 0=LSL 1=LSR 2=ASR 3=ROR, mirrors ir.ShiftType's ordering
	regShift   bool
	shiftAmtImm uint32
	shiftAmtReg int
}

func decodeDataProcessing(word uint32) (armDataProcessing, shiftSpec) {
	var d armDataProcessing

	d.cond = Cond(bits(word, 31, 28))
	d.immediate = bit(word, 25)
	d.opcode = dpOpcode(bits(word, 24, 21))
	d.setFlags = bit(word, 20)
	d.regN = int(bits(word, 19, 16))
	d.regD = int(bits(word, 15, 12))

	var sh shiftSpec

	if d.immediate {
		d.imm8 = bits(word, 7, 0)
		d.shift = bits(word, 11, 8) * 2
	} else {
		d.regM = int(bits(word, 3, 0))
		sh.typ = int(bits(word, 6, 5))
		sh.regShift = bit(word, 4)
		if sh.regShift {
			sh.shiftAmtReg = int(bits(word, 11, 8))
		} else {
			sh.shiftAmtImm = bits(word, 11, 7)
		}
	}

	return d, sh
}

// armSingleDataTransfer is the decoded ARMSingleDataTransfer
// instruction: the Go equivalent of the same-named C++ struct in
// single_data_transfer.cpp.
type armSingleDataTransfer struct {
	cond Cond

	immediate     bool
	preIncrement  bool
	add           bool
	byte          bool
	writeback     bool
	load          bool

	regBase int
	regDst  int

	offsetImm uint32

	// register offset
	offsetReg       int
	offsetShiftType int // 0=LSL 1=LSR 2=ASR 3=ROR
	offsetShiftAmt  uint32
}

func decodeSingleDataTransfer(word uint32) armSingleDataTransfer {
	var d armSingleDataTransfer

	d.cond = Cond(bits(word, 31, 28))
	d.immediate = !bit(word, 25) // SDT polarity: I=0 means immediate offset
	d.preIncrement = bit(word, 24)
	d.add = bit(word, 23)
	d.byte = bit(word, 22)
	d.writeback = bit(word, 21)
	d.load = bit(word, 20)
	d.regBase = int(bits(word, 19, 16))
	d.regDst = int(bits(word, 15, 12))

	if d.immediate {
		d.offsetImm = bits(word, 11, 0)
	} else {
		d.offsetReg = int(bits(word, 3, 0))
		d.offsetShiftType = int(bits(word, 6, 5))
		d.offsetShiftAmt = bits(word, 11, 7)
	}

	return d
}

// instrClass is the coarse classification the translator's fetch loop
// uses to pick a handler.
type instrClass int

const (
	classUnknown instrClass = iota
	classDataProcessing
	classSingleDataTransfer
)

func classify(word uint32) instrClass {
	switch bits(word, 27, 26) {
	case 0b00:
		return classDataProcessing
	case 0b01:
		return classSingleDataTransfer
	default:
		return classUnknown
	}
}
