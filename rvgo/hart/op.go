package hart

import "fmt"

// Op identifies a decoded operation.
type Op uint8

const (
	OpInvalid Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	OpSB
	OpSH
	OpSW
	OpSD

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpMUL
	OpMULH
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW
	OpMULW
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	OpFENCE

	OpECALL
	OpEBREAK
	OpMRET

	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	OpAMOSWAP
	OpAMOADD
	OpAMOXOR
	OpAMOAND
	OpAMOOR
	OpAMOMIN
	OpAMOMAX
	OpAMOMINU
	OpAMOMAXU

	opCount
)

var opNames = [opCount]string{
	OpInvalid: "invalid",
	OpLUI:     "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLD: "ld", OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSD: "sd",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori", OpANDI: "andi",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu", OpXOR: "xor",
	OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpMUL: "mul", OpMULH: "mulh", OpMULHU: "mulhu", OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw", OpSRAW: "sraw",
	OpMULW: "mulw", OpDIVW: "divw", OpDIVUW: "divuw", OpREMW: "remw", OpREMUW: "remuw",
	OpFENCE: "fence",
	OpECALL: "ecall", OpEBREAK: "ebreak", OpMRET: "mret",
	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc", OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",
	OpAMOSWAP: "amoswap", OpAMOADD: "amoadd", OpAMOXOR: "amoxor", OpAMOAND: "amoand", OpAMOOR: "amoor",
	OpAMOMIN: "amomin", OpAMOMAX: "amomax", OpAMOMINU: "amominu", OpAMOMAXU: "amomaxu",
}

func (op Op) String() string {
	if op < opCount && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}
