package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepMatcher(t *testing.T) {
	cases := []struct {
		pattern string
		match   []uint64
		miss    []uint64
	}{
		{"never", nil, []uint64{0, 1, 100}},
		{"", nil, []uint64{0, 1}},
		{"always", []uint64{0, 1, 12345}, nil},
		{"=42", []uint64{42}, []uint64{0, 41, 43}},
		{"=0x10", []uint64{16}, []uint64{10}},
		{"%100", []uint64{0, 100, 200}, []uint64{1, 99, 101}},
	}
	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			m := MustStepMatcherFlag(tc.pattern)
			require.Equal(t, tc.pattern, m.String())
			for _, step := range tc.match {
				require.True(t, m.Matcher()(step), "step %d", step)
			}
			for _, step := range tc.miss {
				require.False(t, m.Matcher()(step), "step %d", step)
			}
		})
	}
}

func TestStepMatcherInvalid(t *testing.T) {
	for _, pattern := range []string{"sometimes", "=x", "%0", "%", "12"} {
		t.Run(pattern, func(t *testing.T) {
			require.Error(t, new(StepMatcherFlag).Set(pattern))
		})
	}
	require.Panics(t, func() { MustStepMatcherFlag("bogus") })
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("0x4000000")
	require.NoError(t, err)
	require.Equal(t, uint64(64<<20), v)

	v, err = parseNumber("1_048_576")
	require.NoError(t, err)
	require.Equal(t, uint64(1<<20), v)

	_, err = parseNumber("lots")
	require.ErrorContains(t, err, "invalid number")
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"trace", "DEBUG", "info", "warn", "error", "crit"} {
		_, err := parseLevel(s)
		require.NoError(t, err, s)
	}
	_, err := parseLevel("loud")
	require.Error(t, err)
}
