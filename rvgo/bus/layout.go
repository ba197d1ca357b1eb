package bus

import (
	"fmt"
	"io"
)

const (
	DefaultDTBBase   = 0x1000
	DefaultDTBSize   = 0xF000
	DefaultCLINTBase = 0x2000000
	DefaultCLINTSize = 0x10000
	DefaultUARTBase  = 0x10000000
	DefaultUARTSize  = 0x100
	DefaultDRAMBase  = 0x80000000
	DefaultDRAMSize  = 1 << 30

	MinDRAMSize = 64 << 20
)

// Layout is the physical address map of a board.
type Layout struct {
	DTBBase   uint64 `json:"dtbBase"`
	DTBSize   uint64 `json:"dtbSize"`
	UARTBase  uint64 `json:"uartBase"`
	UARTSize  uint64 `json:"uartSize"`
	CLINTBase uint64 `json:"clintBase"`
	CLINTSize uint64 `json:"clintSize"`
	DRAMBase  uint64 `json:"dramBase"`
	DRAMSize  uint64 `json:"dramSize"`
}

func DefaultLayout() Layout {
	return Layout{
		DTBBase:   DefaultDTBBase,
		DTBSize:   DefaultDTBSize,
		UARTBase:  DefaultUARTBase,
		UARTSize:  DefaultUARTSize,
		CLINTBase: DefaultCLINTBase,
		CLINTSize: DefaultCLINTSize,
		DRAMBase:  DefaultDRAMBase,
		DRAMSize:  DefaultDRAMSize,
	}
}

// DRAMEnd is the first address past main memory; the initial stack pointer.
func (l Layout) DRAMEnd() uint64 {
	return l.DRAMBase + l.DRAMSize
}

func (l Layout) Validate() error {
	if l.DRAMSize < MinDRAMSize {
		return fmt.Errorf("main memory of %d bytes is smaller than the minimum of %d bytes", l.DRAMSize, MinDRAMSize)
	}
	if l.DRAMBase+l.DRAMSize < l.DRAMBase {
		return fmt.Errorf("main memory at 0x%x with %d bytes wraps the address space", l.DRAMBase, l.DRAMSize)
	}
	return nil
}

// Board is the standard set of devices wired to a bus.
type Board struct {
	Layout Layout
	Bus    *Bus
	DRAM   *Memory
	DTB    *BootRom
	UART   *Console
	CLINT  *Timer
}

// NewBoard wires the main memory, device-tree ROM, console and timer
// at the addresses given by the layout. Console output goes to console.
func NewBoard(l Layout, console io.Writer) (*Board, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		Layout: l,
		DRAM:   NewMemory(l.DRAMSize),
		DTB:    NewBootRom(l.DTBSize),
		UART:   NewConsole(console),
		CLINT:  NewTimer(),
	}
	var err error
	b.Bus, err = New(
		Region{Name: "dtb", Start: l.DTBBase, End: l.DTBBase + l.DTBSize, Device: b.DTB},
		Region{Name: "clint", Start: l.CLINTBase, End: l.CLINTBase + l.CLINTSize, Device: b.CLINT},
		Region{Name: "uart", Start: l.UARTBase, End: l.UARTBase + l.UARTSize, Device: b.UART},
		Region{Name: "dram", Start: l.DRAMBase, End: l.DRAMEnd(), Device: b.DRAM},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return b, nil
}
