package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func TestOpCounter(t *testing.T) {
	m := testMachine(t, addi(1, 0, 1), addi(1, 1, 1), riscv.InstrEcall)
	counter := NewOpCounter()
	m.SetObserver(counter)
	for i := 0; i < 3; i++ {
		m.Step()
	}

	ops := counter.Ops()
	require.Equal(t, []OpCount{{Op: hart.OpADDI, Count: 2}, {Op: hart.OpECALL, Count: 1}}, ops)
	require.Equal(t, uint64(1), counter.Traps(riscv.CauseEcallFromM))
	require.Zero(t, counter.Traps(riscv.CauseIllegalInstruction))

	path := filepath.Join(t.TempDir(), "mix.svg")
	require.NoError(t, counter.WriteChart(path, 1))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	require.ErrorContains(t, NewOpCounter().WriteChart(path, 0), "no instructions executed")
}

func TestObserversFanOut(t *testing.T) {
	a, b := NewOpCounter(), NewOpCounter()
	m := testMachine(t, addi(1, 0, 1))
	m.SetObserver(observers{a, b})
	require.Nil(t, m.Step())
	require.Equal(t, a.Ops(), b.Ops())
	require.Len(t, a.Ops(), 1)
}
