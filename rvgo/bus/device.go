package bus

import (
	"errors"
	"fmt"
)

// Width is an access width in bits.
type Width uint8

const (
	Byte   Width = 8
	Half   Width = 16
	Word   Width = 32
	Double Width = 64
)

func (w Width) Valid() bool {
	return w == Byte || w == Half || w == Word || w == Double
}

// Bytes returns the number of bytes covered by an access of this width.
func (w Width) Bytes() uint64 {
	return uint64(w) / 8
}

func (w Width) String() string {
	return fmt.Sprintf("%d-bit", uint8(w))
}

var (
	ErrReadOnly    = errors.New("device is read-only")
	ErrOutOfBounds = errors.New("access out of device bounds")
)

// Device is anything that can be mapped into the physical address space.
// Offsets are local to the device; widths are already validated by the bus.
type Device interface {
	Read(offset uint64, w Width) (uint64, error)
	Write(offset uint64, value uint64, w Width) error
}
