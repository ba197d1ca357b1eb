package hart

import (
	"fmt"
	"io"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
)

// Machine is a hart attached to a standard board.
type Machine struct {
	*Cpu
	Board *bus.Board
}

// NewMachine builds a board for the layout and resets a hart on it.
// The reset values of sp and a1 are taken from the layout, overriding cfg.
func NewMachine(l bus.Layout, console io.Writer, cfg Config) (*Machine, error) {
	board, err := bus.NewBoard(l, console)
	if err != nil {
		return nil, err
	}
	reset := ConfigFor(l)
	cfg.StackTop = reset.StackTop
	cfg.DTBBase = reset.DTBBase
	m := &Machine{Cpu: New(board.Bus, cfg), Board: board}
	m.SetPC(l.DRAMBase)
	return m, nil
}

// LoadImage copies a raw kernel image to the start of main memory.
func (m *Machine) LoadImage(data []byte) error {
	if err := m.Board.DRAM.Load(data); err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	return nil
}

// LoadSegment copies data to a physical address inside main memory.
func (m *Machine) LoadSegment(addr uint64, r io.Reader) error {
	l := m.Board.Layout
	if addr < l.DRAMBase || addr >= l.DRAMEnd() {
		return fmt.Errorf("segment at 0x%x is outside of main memory [0x%x, 0x%x)", addr, l.DRAMBase, l.DRAMEnd())
	}
	return m.Board.DRAM.SetRange(addr-l.DRAMBase, r)
}

// LoadDTB places a device-tree blob in the boot ROM.
func (m *Machine) LoadDTB(data []byte) error {
	if err := m.Board.DTB.Load(data); err != nil {
		return fmt.Errorf("failed to load dtb: %w", err)
	}
	return nil
}
