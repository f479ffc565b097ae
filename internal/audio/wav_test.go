package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_HeaderLayout(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x02}, 100)
	wav := EncodeWAV(pcm, DefaultFormat)

	require.Len(t, wav, WAVHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, pcm, wav[WAVHeaderSize:])
}

func TestDecodeWAVHeader_Duration(t *testing.T) {
	f := DefaultFormat
	pcm := make([]byte, f.ByteRate()*3+10)

	h, err := DecodeWAVHeader(EncodeWAV(pcm, f))
	require.NoError(t, err)
	assert.Equal(t, f, h.Format)
	assert.Equal(t, len(pcm), h.DataSize)
	assert.Equal(t, 3, h.DurationSeconds())
}

func TestDecodeWAVHeader_TruncatedDataIsClamped(t *testing.T) {
	wav := EncodeWAV(make([]byte, DefaultFormat.ByteRate()*2), DefaultFormat)
	h, err := DecodeWAVHeader(wav[:WAVHeaderSize+DefaultFormat.ByteRate()])
	require.NoError(t, err)
	assert.Equal(t, 1, h.DurationSeconds())
}

func TestDecodeWAVHeader_Rejects(t *testing.T) {
	tests := map[string][]byte{
		"short":   []byte("RIFF"),
		"webm":    append([]byte{0x1a, 0x45, 0xdf, 0xa3}, make([]byte, 60)...),
		"non-pcm": func() []byte { b := EncodeWAV(nil, DefaultFormat); b[20] = 3; return b }(),
		"no data": func() []byte { b := EncodeWAV(nil, DefaultFormat); copy(b[36:40], "LIST"); return b }(),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWAVHeader(in)
			assert.ErrorIs(t, err, ErrNotWAV)
		})
	}
}

func TestHeader_ZeroByteRate(t *testing.T) {
	assert.Equal(t, 0, Header{DataSize: 100}.DurationSeconds())
}
