package bus

import "io"

// Console is a write-only character sink. Writing to offset 0 emits the
// low byte of the value; everything else is ignored and reads return 0.
type Console struct {
	out io.Writer
	buf [1]byte
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out}
}

func (c *Console) Read(offset uint64, w Width) (uint64, error) {
	return 0, nil
}

func (c *Console) Write(offset uint64, value uint64, w Width) error {
	if offset == 0 {
		c.buf[0] = byte(value)
		// stub device: output errors never reach the hart
		_, _ = c.out.Write(c.buf[:])
	}
	return nil
}
