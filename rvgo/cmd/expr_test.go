package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rvhart/rvgo/bus"
	"github.com/ethereum-optimism/rvhart/rvgo/hart"
	"github.com/ethereum-optimism/rvhart/rvgo/riscv"
)

func TestStopCondition(t *testing.T) {
	l := bus.DefaultLayout()
	l.DRAMSize = bus.MinDRAMSize
	m, err := hart.NewMachine(l, nil, hart.Config{})
	require.NoError(t, err)
	m.SetRegister(riscv.RegA0, 7)
	m.SetCSR(riscv.CSRMcause, 11)

	cases := []struct {
		expr string
		want bool
	}{
		{"pc() == 0x80000000", true},
		{"pc() == 0", false},
		{"x(a0) == 7", true},
		{"x(10) == 7 and x(zero) == 0", true},
		{"x(sp) == 0x84000000", true},
		{"csr(mcause) == 11", true},
		{"csr(0x342) > 11", false},
		{"mode() == 'M'", true},
		{"x(a0)", true},
		{"x(a1) & 0xfff == 0", true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			sc, err := NewStopCondition(tc.expr)
			require.NoError(t, err)
			got, err := sc.Eval(m.Cpu)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestStopConditionErrors(t *testing.T) {
	_, err := NewStopCondition("pc( ==")
	require.ErrorContains(t, err, "invalid stop condition")
	_, err = NewStopCondition("nosuch()")
	require.ErrorContains(t, err, "invalid stop condition")

	l := bus.DefaultLayout()
	l.DRAMSize = bus.MinDRAMSize
	m, err := hart.NewMachine(l, nil, hart.Config{})
	require.NoError(t, err)

	for _, expr := range []string{"x(32)", "csr(4096)", "pc(1)", "x('a0')"} {
		t.Run(expr, func(t *testing.T) {
			sc, err := NewStopCondition(expr)
			require.NoError(t, err)
			_, err = sc.Eval(m.Cpu)
			require.ErrorContains(t, err, "failed to evaluate stop condition")
		})
	}
}
