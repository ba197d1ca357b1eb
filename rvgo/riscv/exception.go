package riscv

import (
	"errors"
	"fmt"
)

// Cause is the trap cause code written to mcause.
type Cause uint64

const (
	CauseIllegalInstruction     Cause = 2
	CauseBreakpoint             Cause = 3
	CauseLoadAddressMisaligned  Cause = 4
	CauseLoadAccessFault        Cause = 5
	CauseStoreAddressMisaligned Cause = 6
	CauseStoreAccessFault       Cause = 7
	CauseEcallFromU             Cause = 8
	CauseEcallFromS             Cause = 9
	CauseEcallFromM             Cause = 11
	CauseHardwareError          Cause = 19
)

func (c Cause) String() string {
	switch c {
	case CauseIllegalInstruction:
		return "illegal instruction"
	case CauseBreakpoint:
		return "breakpoint"
	case CauseLoadAddressMisaligned:
		return "load address misaligned"
	case CauseLoadAccessFault:
		return "load access fault"
	case CauseStoreAddressMisaligned:
		return "store/AMO address misaligned"
	case CauseStoreAccessFault:
		return "store/AMO access fault"
	case CauseEcallFromU:
		return "environment call from U-mode"
	case CauseEcallFromS:
		return "environment call from S-mode"
	case CauseEcallFromM:
		return "environment call from M-mode"
	case CauseHardwareError:
		return "hardware error"
	default:
		return fmt.Sprintf("cause(%d)", uint64(c))
	}
}

// IsEnvironmentCall reports whether the cause is a deliberate ECALL trap,
// which drivers may resume from.
func (c Cause) IsEnvironmentCall() bool {
	return c == CauseEcallFromU || c == CauseEcallFromS || c == CauseEcallFromM
}

// ErrUnsupported is matched by exceptions raised for encodings that are
// recognised but deliberately not implemented.
var ErrUnsupported = errors.New("unsupported operation")

// Exception is a synchronous trap raised by fetch, decode, execute or the bus.
type Exception struct {
	Cause Cause
	// Value is written to mtval: the faulting address for memory faults.
	Value  uint64
	Reason string
	// Unsupported marks valid encodings this hart does not implement.
	Unsupported bool
}

func (e *Exception) Error() string {
	msg := e.Cause.String()
	switch e.Cause {
	case CauseLoadAddressMisaligned, CauseLoadAccessFault,
		CauseStoreAddressMisaligned, CauseStoreAccessFault:
		msg = fmt.Sprintf("%s at 0x%016x", msg, e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *Exception) Unwrap() error {
	if e.Unsupported {
		return ErrUnsupported
	}
	return nil
}

func IllegalInstruction(format string, args ...any) *Exception {
	return &Exception{Cause: CauseIllegalInstruction, Reason: fmt.Sprintf(format, args...)}
}

// Unsupported is an illegal-instruction trap for an encoding this hart
// recognises but does not implement.
func Unsupported(format string, args ...any) *Exception {
	return &Exception{Cause: CauseIllegalInstruction, Reason: fmt.Sprintf(format, args...), Unsupported: true}
}

func Breakpoint(pc uint64) *Exception {
	return &Exception{Cause: CauseBreakpoint, Value: pc}
}

func LoadAccessFault(addr uint64) *Exception {
	return &Exception{Cause: CauseLoadAccessFault, Value: addr}
}

func StoreAccessFault(addr uint64) *Exception {
	return &Exception{Cause: CauseStoreAccessFault, Value: addr}
}

func LoadAddressMisaligned(addr uint64) *Exception {
	return &Exception{Cause: CauseLoadAddressMisaligned, Value: addr}
}

func StoreAddressMisaligned(addr uint64) *Exception {
	return &Exception{Cause: CauseStoreAddressMisaligned, Value: addr}
}

func HardwareError(format string, args ...any) *Exception {
	return &Exception{Cause: CauseHardwareError, Reason: fmt.Sprintf(format, args...)}
}

// EnvironmentCall returns the ECALL trap for the given privilege mode.
func EnvironmentCall(mode Mode) *Exception {
	switch mode {
	case ModeUser:
		return &Exception{Cause: CauseEcallFromU}
	case ModeSupervisor:
		return &Exception{Cause: CauseEcallFromS}
	default:
		return &Exception{Cause: CauseEcallFromM}
	}
}

// AsException extracts the exception from err. Errors that are not
// exceptions surface as hardware errors.
func AsException(err error) *Exception {
	if err == nil {
		return nil
	}
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	return HardwareError("%v", err)
}
