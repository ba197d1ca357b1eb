package hart

import "github.com/ethereum-optimism/rvhart/rvgo/riscv"

// RegisterFile holds the 32 integer registers. x0 is hardwired to zero.
type RegisterFile [32]uint64

func (r *RegisterFile) Read(i uint8) uint64 {
	if i == 0 {
		return 0
	}
	return r[i&31]
}

// Write sets register i. Writes to x0 are dropped.
func (r *RegisterFile) Write(i uint8, v uint64) {
	if i == 0 {
		return
	}
	r[i&31] = v
}

// CSRFile is the flat 12-bit addressed control/status register bank.
// No privilege checks are applied to CSR accesses.
type CSRFile [riscv.CSRCount]uint64

func (c *CSRFile) Read(i uint16) uint64 {
	return c[i&(riscv.CSRCount-1)]
}

func (c *CSRFile) Write(i uint16, v uint64) {
	c[i&(riscv.CSRCount-1)] = v
}
