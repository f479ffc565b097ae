// Package audio contains the WAV container helpers used when capturing raw
// PCM from a microphone and when publishing existing WAV files.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE header.
const WAVHeaderSize = 44

const pcmFormat = 1

// Format describes linear PCM samples.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is what the arecord device captures: 16 kHz mono S16_LE.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

// ByteRate is the number of bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

func (f Format) blockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

var ErrNotWAV = errors.New("not a PCM WAV file")

// EncodeWAV prepends a 44-byte header describing pcm in format f.
func EncodeWAV(pcm []byte, f Format) []byte {
	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize + len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmFormat))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.ByteRate()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.blockAlign()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// Header is the decoded part of a canonical WAV header.
type Header struct {
	Format   Format
	DataSize int
}

// DurationSeconds is the playback length rounded down to whole seconds.
func (h Header) DurationSeconds() int {
	br := h.Format.ByteRate()
	if br == 0 {
		return 0
	}
	return h.DataSize / br
}

// DecodeWAVHeader parses a canonical 44-byte PCM header. Files with extra
// chunks before "data" are rejected.
func DecodeWAVHeader(data []byte) (Header, error) {
	if len(data) < WAVHeaderSize ||
		string(data[0:4]) != "RIFF" ||
		string(data[8:12]) != "WAVE" ||
		string(data[12:16]) != "fmt " ||
		string(data[36:40]) != "data" {
		return Header{}, ErrNotWAV
	}
	if binary.LittleEndian.Uint16(data[20:22]) != pcmFormat {
		return Header{}, ErrNotWAV
	}

	h := Header{
		Format: Format{
			Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
			SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
			BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
		},
		DataSize: int(binary.LittleEndian.Uint32(data[40:44])),
	}
	if avail := len(data) - WAVHeaderSize; h.DataSize > avail {
		h.DataSize = avail
	}
	return h, nil
}
