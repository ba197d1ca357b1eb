package hart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func encR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm) & 0xFFF
	return (u>>5)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1F)<<7 | opcode
}

func encB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm) & 0x1FFF
	return (u>>12)<<31 | ((u>>5)&0x3F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 |
		((u>>1)&0xF)<<8 | ((u>>11)&1)<<7 | riscv.OpcodeBranch
}

func encU(opcode, rd, imm uint32) uint32 {
	return imm&0xFFFFF000 | rd<<7 | opcode
}

func encJ(rd uint32, imm int32) uint32 {
	u := uint32(imm) & 0x1FFFFF
	return (u>>20)<<31 | ((u>>1)&0x3FF)<<21 | ((u>>11)&1)<<20 | ((u>>12)&0xFF)<<12 | rd<<7 | riscv.OpcodeJal
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encI(riscv.OpcodeOpImm, rd, 0, rs1, imm) }
func lb(rd, rs1 uint32, imm int32) uint32   { return encI(riscv.OpcodeLoad, rd, 0, rs1, imm) }
func lw(rd, rs1 uint32, imm int32) uint32   { return encI(riscv.OpcodeLoad, rd, 2, rs1, imm) }
func ld(rd, rs1 uint32, imm int32) uint32   { return encI(riscv.OpcodeLoad, rd, 3, rs1, imm) }
func sw(rs1, rs2 uint32, imm int32) uint32  { return encS(riscv.OpcodeStore, 2, rs1, rs2, imm) }
func sd(rs1, rs2 uint32, imm int32) uint32  { return encS(riscv.OpcodeStore, 3, rs1, rs2, imm) }

func csr(funct3, rd, rs1, n uint32) uint32 {
	return n<<20 | rs1<<15 | funct3<<12 | rd<<7 | riscv.OpcodeSystem
}

func amo(funct5, funct3, rd, rs1, rs2 uint32) uint32 {
	return encR(riscv.OpcodeAmo, rd, funct3, rs1, rs2, funct5<<2)
}

// smallLayout keeps main memory at the minimum size.
func smallLayout() bus.Layout {
	l := bus.DefaultLayout()
	l.DRAMSize = bus.MinDRAMSize
	return l
}

// newTestMachine loads the program at the start of main memory.
func newTestMachine(t *testing.T, program ...uint32) *Machine {
	t.Helper()
	m, err := NewMachine(smallLayout(), nil, Config{})
	require.NoError(t, err)
	writeProgram(t, m, m.PC(), program...)
	return m
}

func writeProgram(t *testing.T, m *Machine, at uint64, program ...uint32) {
	t.Helper()
	for i, instr := range program {
		require.NoError(t, m.Bus().Write(at+uint64(i)*4, uint64(instr), bus.Word))
	}
}

func stepN(t *testing.T, m *Machine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		exc := m.Step()
		require.Nil(t, exc, "step %d", i)
	}
}
