package riscv

// Major opcodes, bits [6:0] of an uncompressed instruction.
const (
	OpcodeLoad    = 0x03
	OpcodeMiscMem = 0x0F
	OpcodeOpImm   = 0x13
	OpcodeAuipc   = 0x17
	OpcodeOpImm32 = 0x1B
	OpcodeStore   = 0x23
	OpcodeAmo     = 0x2F
	OpcodeOp      = 0x33
	OpcodeLui     = 0x37
	OpcodeOp32    = 0x3B
	OpcodeBranch  = 0x63
	OpcodeJalr    = 0x67
	OpcodeJal     = 0x6F
	OpcodeSystem  = 0x73
)

// Full-word encodings matched before the generic SYSTEM dispatch.
const (
	InstrEcall  = 0x00000073
	InstrEbreak = 0x00100073
	InstrMret   = 0x30200073
	InstrWfi    = 0x10500073
)

// Machine-level CSR numbers.
const (
	CSRMstatus  = 0x300
	CSRMisa     = 0x301
	CSRMedeleg  = 0x302
	CSRMideleg  = 0x303
	CSRMie      = 0x304
	CSRMtvec    = 0x305
	CSRMscratch = 0x340
	CSRMepc     = 0x341
	CSRMcause   = 0x342
	CSRMtval    = 0x343
	CSRMip      = 0x344
	CSRMcycle   = 0xB00
	CSRMinstret = 0xB02
	CSRCycle    = 0xC00
	CSRInstret  = 0xC02
	CSRMhartid  = 0xF14

	CSRCount = 4096
)

// mstatus fields.
const (
	MstatusMIE      = uint64(1) << 3
	MstatusMPIE     = uint64(1) << 7
	MstatusMPPShift = 11
	MstatusMPPMask  = uint64(3) << MstatusMPPShift
)

// misa fields.
const (
	MisaMXL64 = uint64(2) << 62
	MisaA     = uint64(1) << 0
	MisaI     = uint64(1) << 8
	MisaM     = uint64(1) << 12
)

// ABI register indices used by the boot convention.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA1   = 11
)

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterName returns the ABI name of integer register i.
func RegisterName(i int) string {
	if i < 0 || i >= len(abiNames) {
		return "invalid"
	}
	return abiNames[i]
}

// RegisterNames returns all ABI register names, indexed by register number.
func RegisterNames() [32]string {
	return abiNames
}
