package hart

import (
	"fmt"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// Instruction is a decoded uncompressed instruction.
// Fields that do not apply to the operation are zero.
type Instruction struct {
	Op  Op
	Raw uint32

	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Imm is the sign-extended immediate, the shift amount of shift-immediate
	// operations, or the zero-extended uimm of the CSR*I operations.
	Imm uint64
	CSR uint16
	// Width is the access width of loads, stores and AMOs.
	Width bus.Width
}

func (in Instruction) String() string {
	return fmt.Sprintf("%s(%08x)", in.Op, in.Raw)
}

// R-type operations, keyed by funct7<<3 | funct3.
var (
	opTable = map[uint32]Op{
		0x00<<3 | 0: OpADD,
		0x20<<3 | 0: OpSUB,
		0x00<<3 | 1: OpSLL,
		0x00<<3 | 2: OpSLT,
		0x00<<3 | 3: OpSLTU,
		0x00<<3 | 4: OpXOR,
		0x00<<3 | 5: OpSRL,
		0x20<<3 | 5: OpSRA,
		0x00<<3 | 6: OpOR,
		0x00<<3 | 7: OpAND,
		0x01<<3 | 0: OpMUL,
		0x01<<3 | 1: OpMULH,
		0x01<<3 | 3: OpMULHU,
		0x01<<3 | 4: OpDIV,
		0x01<<3 | 5: OpDIVU,
		0x01<<3 | 6: OpREM,
		0x01<<3 | 7: OpREMU,
	}
	op32Table = map[uint32]Op{
		0x00<<3 | 0: OpADDW,
		0x20<<3 | 0: OpSUBW,
		0x00<<3 | 1: OpSLLW,
		0x00<<3 | 5: OpSRLW,
		0x20<<3 | 5: OpSRAW,
		0x01<<3 | 0: OpMULW,
		0x01<<3 | 4: OpDIVW,
		0x01<<3 | 5: OpDIVUW,
		0x01<<3 | 6: OpREMW,
		0x01<<3 | 7: OpREMUW,
	}
	loadOps = [8]Op{OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU, OpInvalid}
	// indexed by funct3 & 3
	accessWidths = [4]bus.Width{bus.Byte, bus.Half, bus.Word, bus.Double}
	storeOps     = [8]Op{OpSB, OpSH, OpSW, OpSD}
	branchOps    = [8]Op{OpBEQ, OpBNE, OpInvalid, OpInvalid, OpBLT, OpBGE, OpBLTU, OpBGEU}
	opImmOps     = [8]Op{OpADDI, OpInvalid, OpSLTI, OpSLTIU, OpXORI, OpInvalid, OpORI, OpANDI}
	csrOps       = [8]Op{OpInvalid, OpCSRRW, OpCSRRS, OpCSRRC, OpInvalid, OpCSRRWI, OpCSRRSI, OpCSRRCI}
	// indexed by funct5
	amoOps = map[uint32]Op{
		0x00: OpAMOADD,
		0x01: OpAMOSWAP,
		0x04: OpAMOXOR,
		0x08: OpAMOOR,
		0x0C: OpAMOAND,
		0x10: OpAMOMIN,
		0x14: OpAMOMAX,
		0x18: OpAMOMINU,
		0x1C: OpAMOMAXU,
	}
)

// Decode classifies a 32-bit instruction word. Failures are *riscv.Exception values.
func Decode(instr uint32) (Instruction, error) {
	in := Instruction{
		Raw: instr,
		Rd:  parseRd(instr),
		Rs1: parseRs1(instr),
		Rs2: parseRs2(instr),
	}

	switch instr {
	case riscv.InstrMret:
		return Instruction{Op: OpMRET, Raw: instr}, nil
	case riscv.InstrEcall:
		return Instruction{Op: OpECALL, Raw: instr}, nil
	case riscv.InstrEbreak:
		return Instruction{Op: OpEBREAK, Raw: instr}, nil
	case riscv.InstrWfi:
		return Instruction{}, riscv.Unsupported("wfi: no interrupt source")
	}

	opcode := parseOpcode(instr)
	funct3 := parseFunct3(instr)
	funct7 := parseFunct7(instr)

	switch opcode {
	case riscv.OpcodeLoad:
		in.Op = loadOps[funct3]
		in.Width = accessWidths[funct3&3]
		in.Imm = parseImmTypeI(instr)
	case riscv.OpcodeStore:
		in.Op = storeOps[funct3]
		in.Width = accessWidths[funct3&3]
		in.Imm = parseImmTypeS(instr)
	case riscv.OpcodeBranch:
		in.Op = branchOps[funct3]
		in.Imm = parseImmTypeB(instr)
	case riscv.OpcodeOpImm:
		in.Imm = parseImmTypeI(instr)
		switch funct3 {
		case 1: // SLLI, the shift amount leaks into funct7 by 1 bit
			if instr>>26 == 0 {
				in.Op = OpSLLI
			}
			in.Imm = uint64((instr >> 20) & 0x3F)
		case 5:
			switch instr >> 26 {
			case 0x00:
				in.Op = OpSRLI
			case 0x10:
				in.Op = OpSRAI
			}
			in.Imm = uint64((instr >> 20) & 0x3F)
		default:
			in.Op = opImmOps[funct3]
		}
	case riscv.OpcodeOpImm32:
		in.Imm = parseImmTypeI(instr)
		switch funct3 {
		case 0:
			in.Op = OpADDIW
		case 1:
			if funct7 == 0 {
				in.Op = OpSLLIW
			}
			in.Imm = uint64((instr >> 20) & 0x1F)
		case 5:
			switch funct7 {
			case 0x00:
				in.Op = OpSRLIW
			case 0x20:
				in.Op = OpSRAIW
			}
			in.Imm = uint64((instr >> 20) & 0x1F)
		}
	case riscv.OpcodeOp:
		if funct7 == 1 && funct3 == 2 {
			return Instruction{}, riscv.Unsupported("mulhsu")
		}
		in.Op = opTable[funct7<<3|funct3]
	case riscv.OpcodeOp32:
		in.Op = op32Table[funct7<<3|funct3]
	case riscv.OpcodeLui:
		in.Op = OpLUI
		in.Imm = parseImmTypeU(instr)
	case riscv.OpcodeAuipc:
		in.Op = OpAUIPC
		in.Imm = parseImmTypeU(instr)
	case riscv.OpcodeJal:
		in.Op = OpJAL
		in.Imm = parseImmTypeJ(instr)
	case riscv.OpcodeJalr:
		if funct3 == 0 {
			in.Op = OpJALR
		}
		in.Imm = parseImmTypeI(instr)
	case riscv.OpcodeMiscMem:
		// FENCE and FENCE.I: a single in-order hart has nothing to order
		if funct3 <= 1 {
			in.Op = OpFENCE
		}
	case riscv.OpcodeSystem:
		in.Op = csrOps[funct3]
		in.CSR = parseCSR(instr)
		if funct3&4 != 0 {
			in.Imm = uint64(in.Rs1)
		}
	case riscv.OpcodeAmo:
		switch funct3 {
		case 2:
			in.Width = bus.Word
		case 3:
			in.Width = bus.Double
		default:
			return Instruction{}, riscv.IllegalInstruction("amo width funct3=%d", funct3)
		}
		switch funct5 := funct7 >> 2; funct5 {
		case 0x02:
			return Instruction{}, riscv.Unsupported("lr: load-reserved")
		case 0x03:
			return Instruction{}, riscv.Unsupported("sc: store-conditional")
		default:
			in.Op = amoOps[funct5]
		}
	default:
		return Instruction{}, riscv.IllegalInstruction("unknown opcode 0x%02x in %08x", opcode, instr)
	}

	switch opcode {
	case riscv.OpcodeLoad, riscv.OpcodeOpImm, riscv.OpcodeOpImm32, riscv.OpcodeJalr, riscv.OpcodeSystem:
		in.Rs2 = 0
	case riscv.OpcodeStore, riscv.OpcodeBranch:
		in.Rd = 0
	case riscv.OpcodeLui, riscv.OpcodeAuipc, riscv.OpcodeJal:
		in.Rs1, in.Rs2 = 0, 0
	case riscv.OpcodeMiscMem:
		in.Rd, in.Rs1, in.Rs2 = 0, 0, 0
	}

	if in.Op == OpInvalid {
		return Instruction{}, riscv.IllegalInstruction("invalid encoding %08x (opcode 0x%02x funct3 %d funct7 0x%02x)",
			instr, opcode, funct3, funct7)
	}
	return in, nil
}
