package hart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		instr uint32
		want  Instruction
	}{
		{addi(1, 2, -1), Instruction{Op: OpADDI, Rd: 1, Rs1: 2, Imm: ^uint64(0)}},
		{lb(3, 4, 12), Instruction{Op: OpLB, Rd: 3, Rs1: 4, Imm: 12, Width: bus.Byte}},
		{ld(3, 4, -8), Instruction{Op: OpLD, Rd: 3, Rs1: 4, Imm: ^uint64(7), Width: bus.Double}},
		{sw(5, 6, -4), Instruction{Op: OpSW, Rs1: 5, Rs2: 6, Imm: ^uint64(3), Width: bus.Word}},
		{encB(1, 1, 2, -2), Instruction{Op: OpBNE, Rs1: 1, Rs2: 2, Imm: ^uint64(1)}},
		{encJ(1, 0x800), Instruction{Op: OpJAL, Rd: 1, Imm: 0x800}},
		{encJ(0, -4), Instruction{Op: OpJAL, Imm: ^uint64(3)}},
		{encU(riscv.OpcodeLui, 7, 0xFFFFF000), Instruction{Op: OpLUI, Rd: 7, Imm: 0xFFFFFFFFFFFFF000}},
		{encI(riscv.OpcodeOpImm, 1, 1, 2, 63), Instruction{Op: OpSLLI, Rd: 1, Rs1: 2, Imm: 63}},
		{encI(riscv.OpcodeOpImm, 1, 5, 2, 0x400|5), Instruction{Op: OpSRAI, Rd: 1, Rs1: 2, Imm: 5}},
		{encI(riscv.OpcodeOpImm32, 1, 5, 2, 0x400|31), Instruction{Op: OpSRAIW, Rd: 1, Rs1: 2, Imm: 31}},
		{encR(riscv.OpcodeOp, 1, 0, 2, 3, 0x20), Instruction{Op: OpSUB, Rd: 1, Rs1: 2, Rs2: 3}},
		{encR(riscv.OpcodeOp, 1, 3, 2, 3, 0x01), Instruction{Op: OpMULHU, Rd: 1, Rs1: 2, Rs2: 3}},
		{encR(riscv.OpcodeOp32, 1, 7, 2, 3, 0x01), Instruction{Op: OpREMUW, Rd: 1, Rs1: 2, Rs2: 3}},
		{csr(7, 1, 0x1F, riscv.CSRMstatus), Instruction{Op: OpCSRRCI, Rd: 1, Rs1: 0x1F, Imm: 0x1F, CSR: riscv.CSRMstatus}},
		{csr(1, 0, 5, riscv.CSRMtvec), Instruction{Op: OpCSRRW, Rs1: 5, CSR: riscv.CSRMtvec}},
		{amo(0x1C, 3, 1, 2, 3), Instruction{Op: OpAMOMAXU, Rd: 1, Rs1: 2, Rs2: 3, Width: bus.Double}},
		{0x0000000F, Instruction{Op: OpFENCE}},
		{riscv.InstrEcall, Instruction{Op: OpECALL}},
		{riscv.InstrEbreak, Instruction{Op: OpEBREAK}},
		{riscv.InstrMret, Instruction{Op: OpMRET}},
	}
	for _, tc := range cases {
		t.Run(tc.want.Op.String(), func(t *testing.T) {
			got, err := Decode(tc.instr)
			require.NoError(t, err)
			tc.want.Raw = tc.instr
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeIllegal(t *testing.T) {
	cases := map[string]uint32{
		"unknown opcode":  0x0000007F,
		"load funct3 7":   encI(riscv.OpcodeLoad, 1, 7, 2, 0),
		"store funct3 4":  encS(riscv.OpcodeStore, 4, 1, 2, 0),
		"branch funct3 2": encB(2, 1, 2, 4),
		"jalr funct3 1":   encI(riscv.OpcodeJalr, 1, 1, 2, 0),
		"slli funct6":     encI(riscv.OpcodeOpImm, 1, 1, 2, 0x800|3),
		"sub funct3":      encR(riscv.OpcodeOp, 1, 1, 2, 3, 0x20),
		"csr funct3 4":    csr(4, 1, 2, riscv.CSRMstatus),
		"amo byte width":  amo(0x00, 0, 1, 2, 3),
		"amo funct5":      amo(0x1F, 3, 1, 2, 3),
	}
	for name, instr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(instr)
			requireCause(t, err, riscv.CauseIllegalInstruction)
			require.NotErrorIs(t, err, riscv.ErrUnsupported)
		})
	}
}

func TestOpNames(t *testing.T) {
	for op := OpInvalid; op < opCount; op++ {
		require.NotContains(t, op.String(), "op(", "missing name for %d", op)
	}
	require.Equal(t, "op(250)", Op(250).String())
}
