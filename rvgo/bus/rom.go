package bus

import (
	"encoding/binary"
	"fmt"
)

// BootRom is a read-only blob, typically a device-tree image.
// Bytes past the loaded data read as zero.
type BootRom struct {
	capacity uint64
	data     []byte
}

func NewBootRom(capacity uint64) *BootRom {
	return &BootRom{capacity: capacity}
}

// Load replaces the ROM contents.
func (r *BootRom) Load(data []byte) error {
	if uint64(len(data)) > r.capacity {
		return fmt.Errorf("blob of %d bytes exceeds ROM capacity of %d bytes", len(data), r.capacity)
	}
	r.data = append([]byte(nil), data...)
	return nil
}

func (r *BootRom) Data() []byte {
	return r.data
}

func (r *BootRom) Read(offset uint64, w Width) (uint64, error) {
	n := w.Bytes()
	if n > r.capacity || offset > r.capacity-n {
		return 0, ErrOutOfBounds
	}
	var buf [8]byte
	if offset < uint64(len(r.data)) {
		copy(buf[:n], r.data[offset:])
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (r *BootRom) Write(offset uint64, value uint64, w Width) error {
	return ErrReadOnly
}
