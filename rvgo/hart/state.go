package hart

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

// State is the serializable form of a machine. Only non-zero CSRs are kept.
type State struct {
	PC              hexutil.Uint64            `json:"pc"`
	Mode            riscv.Mode                `json:"mode"`
	Registers       [32]hexutil.Uint64        `json:"registers"`
	CSRs            map[uint16]hexutil.Uint64 `json:"csrs"`
	Layout          bus.Layout                `json:"layout"`
	Memory          *bus.Memory               `json:"memory"`
	DTB             hexutil.Bytes             `json:"dtb"`
	StrictAlignment bool                      `json:"strictAlignment"`
}

// Snapshot captures the machine state. Main memory is shared with the
// machine, so the snapshot must be serialized before execution resumes.
func (m *Machine) Snapshot() *State {
	s := &State{
		PC:              hexutil.Uint64(m.pc),
		Mode:            m.mode,
		CSRs:            make(map[uint16]hexutil.Uint64),
		Layout:          m.Board.Layout,
		Memory:          m.Board.DRAM,
		DTB:             m.Board.DTB.Data(),
		StrictAlignment: m.strictAlign,
	}
	for i, r := range m.regs {
		s.Registers[i] = hexutil.Uint64(r)
	}
	for i, v := range m.csrs {
		if v != 0 {
			s.CSRs[uint16(i)] = hexutil.Uint64(v)
		}
	}
	return s
}

// Restore rebuilds a machine from a snapshot.
func Restore(s *State, console io.Writer, observer Observer) (*Machine, error) {
	if s.Memory == nil {
		return nil, fmt.Errorf("state has no memory")
	}
	if s.Memory.Size() != s.Layout.DRAMSize {
		return nil, fmt.Errorf("memory of %d bytes does not match layout with %d bytes of main memory",
			s.Memory.Size(), s.Layout.DRAMSize)
	}
	switch s.Mode {
	case riscv.ModeUser, riscv.ModeSupervisor, riscv.ModeMachine, riscv.ModeDebug:
	default:
		return nil, fmt.Errorf("invalid privilege mode %d", s.Mode)
	}
	m, err := NewMachine(s.Layout, console, Config{StrictAlignment: s.StrictAlignment, Observer: observer})
	if err != nil {
		return nil, err
	}
	if err := m.LoadDTB(s.DTB); err != nil {
		return nil, err
	}
	err = s.Memory.ForEachPage(func(pageIndex uint64, page *bus.Page) error {
		addr := pageIndex << bus.PageAddrSize
		n := min(uint64(bus.PageSize), s.Memory.Size()-addr)
		return m.Board.DRAM.SetRange(addr, bytes.NewReader(page[:n]))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore memory: %w", err)
	}
	m.csrs = CSRFile{}
	for i, v := range s.CSRs {
		if int(i) >= riscv.CSRCount {
			return nil, fmt.Errorf("csr 0x%x out of range", i)
		}
		m.csrs.Write(i, uint64(v))
	}
	for i, r := range s.Registers {
		m.regs.Write(uint8(i), uint64(r))
	}
	m.pc = uint64(s.PC)
	m.mode = s.Mode
	return m, nil
}

// Hash commits to the complete architectural state. Zero pages and zero
// CSRs do not contribute, so sparse and dense forms of the same state agree.
func (s *State) Hash() common.Hash {
	h := crypto.NewKeccakState()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	u64(uint64(s.PC))
	h.Write([]byte{byte(s.Mode)})
	for _, r := range s.Registers {
		u64(uint64(r))
	}

	csrs := make([]uint16, 0, len(s.CSRs))
	for i, v := range s.CSRs {
		if v != 0 {
			csrs = append(csrs, i)
		}
	}
	sort.Slice(csrs, func(i, j int) bool { return csrs[i] < csrs[j] })
	u64(uint64(len(csrs)))
	for _, i := range csrs {
		u64(uint64(i))
		u64(uint64(s.CSRs[i]))
	}

	l := s.Layout
	for _, v := range []uint64{l.DTBBase, l.DTBSize, l.UARTBase, l.UARTSize, l.CLINTBase, l.CLINTSize, l.DRAMBase, l.DRAMSize} {
		u64(v)
	}

	var zero bus.Page
	if s.Memory != nil {
		for _, i := range s.Memory.SortedPageIndices() {
			p, _ := s.Memory.PageAt(i)
			if *p == zero {
				continue
			}
			u64(i)
			h.Write(p[:])
		}
	}

	u64(uint64(len(s.DTB)))
	h.Write(s.DTB)

	var out common.Hash
	h.Read(out[:])
	return out
}
