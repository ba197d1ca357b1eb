package hart

import "github.com/ethereum-optimism/rvhart/rvgo/riscv"

// HandleTrap delivers exc raised by the instruction at pc: the cause, trap
// value and faulting pc are recorded, the previous privilege and interrupt
// enable are stacked in mstatus, and control moves to mtvec in M-mode.
// Trap delivery cannot fail.
func (c *Cpu) HandleTrap(pc uint64, exc *riscv.Exception) {
	c.csrs.Write(riscv.CSRMcause, uint64(exc.Cause))
	c.csrs.Write(riscv.CSRMtval, exc.Value)
	c.csrs.Write(riscv.CSRMepc, pc)

	status := c.csrs.Read(riscv.CSRMstatus)
	status = status&^riscv.MstatusMPPMask | uint64(c.mode&3)<<riscv.MstatusMPPShift
	if status&riscv.MstatusMIE != 0 {
		status |= riscv.MstatusMPIE
	} else {
		status &^= riscv.MstatusMPIE
	}
	status &^= riscv.MstatusMIE
	c.csrs.Write(riscv.CSRMstatus, status)

	c.mode = riscv.ModeMachine
	// exceptions always use the base address, the mode bits only matter for interrupts
	c.pc = c.csrs.Read(riscv.CSRMtvec) &^ 3

	if c.observer != nil {
		c.observer.OnTrap(pc, exc)
	}
}

// mret returns from a machine trap, restoring the privilege saved in mstatus.MPP,
// and yields the address to resume at.
func (c *Cpu) mret() uint64 {
	status := c.csrs.Read(riscv.CSRMstatus)
	mpp := riscv.Mode((status & riscv.MstatusMPPMask) >> riscv.MstatusMPPShift)
	if mpp == 2 { // reserved encoding
		mpp = riscv.ModeUser
	}
	c.mode = mpp

	if status&riscv.MstatusMPIE != 0 {
		status |= riscv.MstatusMIE
	} else {
		status &^= riscv.MstatusMIE
	}
	status |= riscv.MstatusMPIE
	status &^= riscv.MstatusMPPMask
	c.csrs.Write(riscv.CSRMstatus, status)

	return c.csrs.Read(riscv.CSRMepc)
}
