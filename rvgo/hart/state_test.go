package hart

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func runSample(t *testing.T) *Machine {
	m := newTestMachine(t,
		addi(1, 0, 0x55),
		sd(2, 1, 0),
		csr(1, 0, 1, riscv.CSRMscratch),
		riscv.InstrEcall,
	)
	require.NoError(t, m.LoadDTB([]byte{0xd0, 0x0d, 0xfe, 0xed}))
	m.SetRegister(2, dataAddr)
	m.SetCSR(riscv.CSRMtvec, dramBase)
	stepN(t, m, 3)
	require.NotNil(t, m.Step())
	return m
}

func TestSnapshotHashDeterministic(t *testing.T) {
	a := runSample(t).Snapshot()
	b := runSample(t).Snapshot()
	require.Equal(t, a.Hash(), b.Hash())

	m := runSample(t)
	m.SetRegister(7, 1)
	require.NotEqual(t, a.Hash(), m.Snapshot().Hash())
}

func TestSnapshotZeroPagesDoNotCount(t *testing.T) {
	m := runSample(t)
	before := m.Snapshot().Hash()
	// reading allocates nothing, writing a zero allocates a zero page
	require.NoError(t, m.Bus().Write(dramBase+0x100000, 0, bus.Double))
	require.Equal(t, before, m.Snapshot().Hash())
}

func TestRestore(t *testing.T) {
	m := runSample(t)
	s := m.Snapshot()

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, s.Hash(), decoded.Hash())

	r, err := Restore(&decoded, nil, nil)
	require.NoError(t, err)
	require.Equal(t, s.Hash(), r.Snapshot().Hash())
	require.Equal(t, m.PC(), r.PC())
	require.Equal(t, m.Registers(), r.Registers())
	require.Equal(t, uint64(0x55), r.CSR(riscv.CSRMscratch))
	require.Equal(t, uint64(riscv.CauseEcallFromM), r.CSR(riscv.CSRMcause))
	require.Equal(t, m.Board.DTB.Data(), r.Board.DTB.Data())

	v, err := r.Bus().Read(dataAddr, bus.Double)
	require.NoError(t, err)
	require.Equal(t, uint64(0x55), v)

	// the restored machine runs independently
	r.SetRegister(1, 0)
	require.Equal(t, uint64(0x55), m.Register(1))
}

func TestRestoreRejectsMismatchedMemory(t *testing.T) {
	s := runSample(t).Snapshot()
	s.Memory = bus.NewMemory(bus.MinDRAMSize * 2)
	_, err := Restore(s, nil, nil)
	require.ErrorContains(t, err, "does not match layout")

	s = runSample(t).Snapshot()
	s.Mode = 2
	_, err = Restore(s, nil, nil)
	require.ErrorContains(t, err, "invalid privilege mode")
}

func TestLoadSegment(t *testing.T) {
	m := newTestMachine(t)
	require.NoError(t, m.LoadSegment(dataAddr, bytes.NewReader([]byte{1, 2, 3, 4})))
	v, err := m.Bus().Read(dataAddr, bus.Word)
	require.NoError(t, err)
	require.Equal(t, uint64(0x04030201), v)

	require.ErrorContains(t, m.LoadSegment(0x1000, bytes.NewReader([]byte{1})), "outside of main memory")
	require.ErrorContains(t, m.LoadDTB(make([]byte, bus.DefaultDTBSize+1)), "failed to load dtb")
}
