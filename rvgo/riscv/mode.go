package riscv

import "fmt"

// Mode is a hart privilege level, encoded as in mstatus.MPP.
type Mode uint8

const (
	ModeUser       Mode = 0
	ModeSupervisor Mode = 1
	// 2 is reserved for hypervisor use
	ModeMachine Mode = 3
	// ModeDebug is reserved and never entered.
	ModeDebug Mode = 4
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "U"
	case ModeSupervisor:
		return "S"
	case ModeMachine:
		return "M"
	case ModeDebug:
		return "D"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}
