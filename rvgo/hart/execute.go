package hart

import (
	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// exec applies a decoded instruction and returns the next program counter.
// Nothing is written back unless the instruction completes.
func (c *Cpu) exec(pc uint64, in Instruction) (uint64, error) {
	next := pc + 4
	rs1 := c.regs.Read(in.Rs1)
	rs2 := c.regs.Read(in.Rs2)

	switch in.Op {
	case OpLUI:
		c.regs.Write(in.Rd, in.Imm)
	case OpAUIPC:
		c.regs.Write(in.Rd, pc+in.Imm)
	case OpJAL:
		c.regs.Write(in.Rd, pc+4)
		next = pc + in.Imm
	case OpJALR:
		// rs1 was read before rd is written, so rd == rs1 is fine
		c.regs.Write(in.Rd, pc+4)
		next = (rs1 + in.Imm) &^ 1

	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		if branchTaken(in.Op, rs1, rs2) {
			next = pc + in.Imm
		}

	case OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU:
		v, err := c.load(rs1+in.Imm, in.Width)
		if err != nil {
			return 0, err
		}
		switch in.Op {
		case OpLB:
			v = uint64(int64(int8(v)))
		case OpLH:
			v = uint64(int64(int16(v)))
		case OpLW:
			v = signExtend32(v)
		}
		c.regs.Write(in.Rd, v)

	case OpSB, OpSH, OpSW, OpSD:
		if err := c.store(rs1+in.Imm, rs2, in.Width); err != nil {
			return 0, err
		}

	case OpFENCE:
		// single in-order hart: nothing to synchronize

	case OpECALL:
		return 0, riscv.EnvironmentCall(c.mode)
	case OpEBREAK:
		return 0, riscv.Breakpoint(pc)
	case OpMRET:
		next = c.mret()

	case OpCSRRW, OpCSRRS, OpCSRRC, OpCSRRWI, OpCSRRSI, OpCSRRCI:
		c.csrOp(in, rs1)

	case OpAMOSWAP, OpAMOADD, OpAMOXOR, OpAMOAND, OpAMOOR,
		OpAMOMIN, OpAMOMAX, OpAMOMINU, OpAMOMAXU:
		if err := c.amo(in, rs1, rs2); err != nil {
			return 0, err
		}

	default:
		v, ok := alu(in, rs1, rs2)
		if !ok {
			return 0, riscv.IllegalInstruction("unhandled operation %s", in)
		}
		c.regs.Write(in.Rd, v)
	}
	return next, nil
}

func branchTaken(op Op, rs1, rs2 uint64) bool {
	switch op {
	case OpBEQ:
		return rs1 == rs2
	case OpBNE:
		return rs1 != rs2
	case OpBLT:
		return int64(rs1) < int64(rs2)
	case OpBGE:
		return int64(rs1) >= int64(rs2)
	case OpBLTU:
		return rs1 < rs2
	case OpBGEU:
		return rs1 >= rs2
	}
	return false
}

// alu computes the register-register and register-immediate operations.
func alu(in Instruction, rs1, rs2 uint64) (uint64, bool) {
	imm := in.Imm
	switch in.Op {
	case OpADDI:
		return rs1 + imm, true
	case OpSLTI:
		return boolToU64(int64(rs1) < int64(imm)), true
	case OpSLTIU:
		return boolToU64(rs1 < imm), true
	case OpXORI:
		return rs1 ^ imm, true
	case OpORI:
		return rs1 | imm, true
	case OpANDI:
		return rs1 & imm, true
	case OpSLLI:
		return rs1 << imm, true
	case OpSRLI:
		return rs1 >> imm, true
	case OpSRAI:
		return uint64(int64(rs1) >> imm), true

	case OpADDIW:
		return signExtend32(rs1 + imm), true
	case OpSLLIW:
		return signExtend32(rs1 << imm), true
	case OpSRLIW:
		return signExtend32(uint64(uint32(rs1) >> imm)), true
	case OpSRAIW:
		return uint64(int64(int32(rs1) >> imm)), true

	case OpADD:
		return rs1 + rs2, true
	case OpSUB:
		return rs1 - rs2, true
	case OpSLL:
		return rs1 << (rs2 & 0x3F), true // only the low 6 bits are considered in RV64I
	case OpSLT:
		return boolToU64(int64(rs1) < int64(rs2)), true
	case OpSLTU:
		return boolToU64(rs1 < rs2), true
	case OpXOR:
		return rs1 ^ rs2, true
	case OpSRL:
		return rs1 >> (rs2 & 0x3F), true // logical: fill with zeroes
	case OpSRA:
		return uint64(int64(rs1) >> (rs2 & 0x3F)), true // arithmetic: sign bit is extended
	case OpOR:
		return rs1 | rs2, true
	case OpAND:
		return rs1 & rs2, true

	case OpMUL:
		return rs1 * rs2, true
	case OpMULH:
		return mulh(rs1, rs2), true
	case OpMULHU:
		return mulhu(rs1, rs2), true
	case OpDIV:
		return div64(rs1, rs2), true
	case OpDIVU:
		return divu64(rs1, rs2), true
	case OpREM:
		return rem64(rs1, rs2), true
	case OpREMU:
		return remu64(rs1, rs2), true

	case OpADDW:
		return signExtend32(rs1 + rs2), true
	case OpSUBW:
		return signExtend32(rs1 - rs2), true
	case OpSLLW:
		return signExtend32(rs1 << (rs2 & 0x1F)), true
	case OpSRLW:
		return signExtend32(uint64(uint32(rs1) >> (rs2 & 0x1F))), true
	case OpSRAW:
		return uint64(int64(int32(rs1) >> (rs2 & 0x1F))), true
	case OpMULW:
		return signExtend32(rs1 * rs2), true
	case OpDIVW:
		return div32(rs1, rs2), true
	case OpDIVUW:
		return divu32(rs1, rs2), true
	case OpREMW:
		return rem32(rs1, rs2), true
	case OpREMUW:
		return remu32(rs1, rs2), true
	}
	return 0, false
}

func (c *Cpu) csrOp(in Instruction, rs1 uint64) {
	prev := c.csrs.Read(in.CSR)
	src := rs1
	switch in.Op {
	case OpCSRRWI, OpCSRRSI, OpCSRRCI:
		src = in.Imm
	}
	v := prev
	switch in.Op {
	case OpCSRRW, OpCSRRWI:
		v = src
	case OpCSRRS, OpCSRRSI:
		v = prev | src
	case OpCSRRC, OpCSRRCI:
		v = prev &^ src
	}
	if v != prev {
		c.csrs.Write(in.CSR, v)
	}
	c.regs.Write(in.Rd, prev)
}

// amo performs a sequential read-modify-write. This is only atomic because
// there is exactly one hart; a multi-hart bus would need a reservation scheme.
func (c *Cpu) amo(in Instruction, addr uint64, src uint64) error {
	if addr%in.Width.Bytes() != 0 {
		return riscv.StoreAddressMisaligned(addr)
	}
	old, err := c.bus.Read(addr, in.Width)
	if err != nil {
		// AMOs report store/AMO faults, also for the read half
		if exc := riscv.AsException(err); exc.Cause == riscv.CauseLoadAccessFault {
			return riscv.StoreAccessFault(addr)
		}
		return err
	}
	if in.Width == bus.Word {
		old = signExtend32(old)
		src = signExtend32(src)
	}

	var v uint64
	switch in.Op {
	case OpAMOSWAP:
		v = src
	case OpAMOADD:
		v = old + src
	case OpAMOXOR:
		v = old ^ src
	case OpAMOAND:
		v = old & src
	case OpAMOOR:
		v = old | src
	case OpAMOMIN:
		v = old
		if int64(src) < int64(old) {
			v = src
		}
	case OpAMOMAX:
		v = old
		if int64(src) > int64(old) {
			v = src
		}
	case OpAMOMINU:
		// sign-extended words order the same as their zero-extended form
		v = old
		if src < old {
			v = src
		}
	case OpAMOMAXU:
		v = old
		if src > old {
			v = src
		}
	}
	if err := c.bus.Write(addr, v, in.Width); err != nil {
		return err
	}
	c.regs.Write(in.Rd, old)
	return nil
}
