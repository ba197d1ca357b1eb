package bus

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	t.Run("little-endian", func(t *testing.T) {
		m := NewMemory(1 << 20)
		require.NoError(t, m.Write(0x10, 0x1122334455667788, Double))
		for _, tc := range []struct {
			w   Width
			off uint64
			exp uint64
		}{
			{Byte, 0x10, 0x88},
			{Byte, 0x17, 0x11},
			{Half, 0x10, 0x7788},
			{Word, 0x10, 0x55667788},
			{Word, 0x14, 0x11223344},
			{Double, 0x10, 0x1122334455667788},
		} {
			v, err := m.Read(tc.off, tc.w)
			require.NoError(t, err)
			require.Equalf(t, tc.exp, v, "%s read at 0x%x", tc.w, tc.off)
		}
	})

	t.Run("narrow write truncates value", func(t *testing.T) {
		m := NewMemory(1 << 20)
		require.NoError(t, m.Write(0, 0xAABBCCDD, Half))
		v, err := m.Read(0, Word)
		require.NoError(t, err)
		require.Equal(t, uint64(0xCCDD), v)
	})

	t.Run("cross page", func(t *testing.T) {
		m := NewMemory(1 << 20)
		require.NoError(t, m.Write(PageSize-3, 0x0102030405060708, Double))
		v, err := m.Read(PageSize-3, Double)
		require.NoError(t, err)
		require.Equal(t, uint64(0x0102030405060708), v)
		require.Equal(t, 2, m.PageCount())
	})

	t.Run("unwritten is zero and not allocated", func(t *testing.T) {
		m := NewMemory(1 << 30)
		v, err := m.Read(0x3000_0000, Double)
		require.NoError(t, err)
		require.Zero(t, v)
		require.Zero(t, m.PageCount())
	})

	t.Run("bounds", func(t *testing.T) {
		m := NewMemory(PageSize)
		require.NoError(t, m.Write(PageSize-4, 1, Word))
		require.ErrorIs(t, m.Write(PageSize-3, 1, Word), ErrOutOfBounds)
		_, err := m.Read(PageSize, Byte)
		require.ErrorIs(t, err, ErrOutOfBounds)
		_, err = m.Read(^uint64(0), Double)
		require.ErrorIs(t, err, ErrOutOfBounds)
	})
}

func TestMemoryRanges(t *testing.T) {
	t.Run("large random", func(t *testing.T) {
		m := NewMemory(1 << 20)
		data := make([]byte, 20_000)
		_, err := rand.Read(data[:])
		require.NoError(t, err)
		require.NoError(t, m.SetRange(0, bytes.NewReader(data)))
		for _, i := range []uint64{0, 1, 2, 3, 4, 5, 6, 7, 1000, 3333, 4095, 4096, 4097, 20_000 - 8} {
			for _, w := range []Width{Byte, Half, Word, Double} {
				v, err := m.Read(i, w)
				require.NoError(t, err)
				var expected [8]byte
				copy(expected[:w.Bytes()], data[i:i+w.Bytes()])
				var got [8]byte
				for j := range got {
					got[j] = byte(v >> (8 * j))
				}
				require.Equalf(t, expected, got, "read %s at %d", w, i)
			}
		}
	})

	t.Run("repeat range", func(t *testing.T) {
		m := NewMemory(1 << 20)
		data := []byte(strings.Repeat("under the big bright yellow sun ", 40))
		require.NoError(t, m.SetRange(0x1337, bytes.NewReader(data)))
		res, err := io.ReadAll(m.ReadRange(0x1337-10, uint64(len(data)+20)))
		require.NoError(t, err)
		require.Equal(t, make([]byte, 10), res[:10], "empty start")
		require.Equal(t, data, res[10:len(res)-10], "result")
		require.Equal(t, make([]byte, 10), res[len(res)-10:], "empty end")
	})

	t.Run("range too large", func(t *testing.T) {
		m := NewMemory(PageSize)
		err := m.SetRange(PageSize-4, bytes.NewReader(make([]byte, 8)))
		require.ErrorContains(t, err, "exceeds memory capacity")
	})

	t.Run("load", func(t *testing.T) {
		m := NewMemory(PageSize)
		require.NoError(t, m.Load([]byte{0x13, 0x00, 0x00, 0x00}))
		v, err := m.Read(0, Word)
		require.NoError(t, err)
		require.Equal(t, uint64(0x13), v)
		require.Error(t, m.Load(make([]byte, PageSize+1)))
	})
}

func TestMemoryJSON(t *testing.T) {
	m := NewMemory(1 << 20)
	require.NoError(t, m.Write(8, 123, Byte))
	require.NoError(t, m.Write(5*PageSize, 0xdeadbeef, Word))
	dat, err := json.Marshal(m)
	require.NoError(t, err)

	var res Memory
	require.NoError(t, json.Unmarshal(dat, &res))
	require.Equal(t, uint64(1<<20), res.Size())
	require.Equal(t, 2, res.PageCount())
	v, err := res.Read(8, Byte)
	require.NoError(t, err)
	require.Equal(t, uint64(123), v)
	v, err = res.Read(5*PageSize, Word)
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), v)
}

func TestMemoryUsage(t *testing.T) {
	m := NewMemory(1 << 30)
	require.Equal(t, "0 B", m.Usage())
	require.NoError(t, m.Write(0, 1, Byte))
	require.Equal(t, "4.0 KiB", m.Usage())
}
