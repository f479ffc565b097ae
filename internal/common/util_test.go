package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	for _, n := range []int{0, 1, 16, 32} {
		s, err := MakeRandHexString(n)
		require.NoError(t, err)
		assert.Len(t, s, n*2)

		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, raw, n)
	}
}

func TestMakeRandHexString_Unique(t *testing.T) {
	a, err := MakeRandHexString(16)
	require.NoError(t, err)
	b, err := MakeRandHexString(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWipeByteArray(t *testing.T) {
	buf := GenerateRandByteArray(24)
	require.Len(t, buf, 24)

	WipeByteArray(buf)
	assert.Equal(t, make([]byte, 24), buf)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestErrorAliases(t *testing.T) {
	assert.ErrorIs(t, ErrEmptyArtifact, ErrCaptureEmpty)
}
