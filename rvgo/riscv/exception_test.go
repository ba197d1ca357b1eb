package riscv

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCauseCodes(t *testing.T) {
	require.Equal(t, Cause(2), IllegalInstruction("x").Cause)
	require.Equal(t, Cause(5), LoadAccessFault(0).Cause)
	require.Equal(t, Cause(7), StoreAccessFault(0).Cause)
	require.Equal(t, Cause(8), EnvironmentCall(ModeUser).Cause)
	require.Equal(t, Cause(9), EnvironmentCall(ModeSupervisor).Cause)
	require.Equal(t, Cause(11), EnvironmentCall(ModeMachine).Cause)
	require.Equal(t, Cause(19), HardwareError("x").Cause)
	require.True(t, CauseEcallFromS.IsEnvironmentCall())
	require.False(t, CauseLoadAccessFault.IsEnvironmentCall())
}

func TestUnsupported(t *testing.T) {
	exc := Unsupported("wfi: no interrupt source")
	require.Equal(t, CauseIllegalInstruction, exc.Cause)
	require.ErrorIs(t, exc, ErrUnsupported)
	require.NotErrorIs(t, IllegalInstruction("bad"), ErrUnsupported)
	require.ErrorContains(t, exc, "wfi: no interrupt source")
}

func TestAsException(t *testing.T) {
	require.Nil(t, AsException(nil))

	wrapped := fmt.Errorf("bus: %w", StoreAccessFault(0x42))
	exc := AsException(wrapped)
	require.Equal(t, CauseStoreAccessFault, exc.Cause)
	require.Equal(t, uint64(0x42), exc.Value)

	exc = AsException(errors.New("boom"))
	require.Equal(t, CauseHardwareError, exc.Cause)
	require.Contains(t, exc.Error(), "boom")
}
