package capture

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, st Stream) []byte {
	t.Helper()
	var out bytes.Buffer
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b, ok := <-st.Chunks():
			if !ok {
				return out.Bytes()
			}
			out.Write(b)
		case <-timeout:
			t.Fatal("stream did not end")
		}
	}
}

func TestReaderDevice_StreamsWholeSource(t *testing.T) {
	src := bytes.Repeat([]byte("0123456789"), 50)
	dev := &ReaderDevice{
		Source:    func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(src)), nil },
		MIME:      "audio/ogg",
		ChunkSize: 64,
	}

	st, err := dev.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", st.ContentType())
	assert.Equal(t, src, collect(t, st))
	assert.NoError(t, st.Err())
}

func TestReaderDevice_StopEndsPacedStream(t *testing.T) {
	dev := &ReaderDevice{
		Source:    func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(make([]byte, 1<<20))), nil },
		ChunkSize: 16,
		Slice:     time.Millisecond,
	}

	st, err := dev.Open(context.Background())
	require.NoError(t, err)
	<-st.Chunks()
	st.Stop()
	st.Stop()

	got := collect(t, st)
	assert.Less(t, len(got), 1<<20)
	assert.NoError(t, st.Err())
}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.wav")
	wav := audio.EncodeWAV(make([]byte, 1000), audio.DefaultFormat)
	require.NoError(t, os.WriteFile(path, wav, 0o600))

	dev := FileDevice(path, 0)
	assert.Equal(t, "audio/wav", dev.MIME)

	st, err := dev.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wav, collect(t, st))

	_, err = FileDevice(filepath.Join(t.TempDir(), "missing.wav"), 0).Open(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReaderDevice_PermissionError(t *testing.T) {
	dev := &ReaderDevice{Source: func() (io.ReadCloser, error) { return nil, os.ErrPermission }}
	_, err := dev.Open(context.Background())
	require.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestReaderDevice_WithController(t *testing.T) {
	src := []byte("a pre-recorded memo")
	dev := &ReaderDevice{
		Source:    func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(src)), nil },
		MIME:      "audio/webm",
		ChunkSize: 4,
	}
	tk := &fakeTicker{ch: make(chan time.Time)}
	c := New(dev, WithTicker(func(time.Duration) Ticker { return tk }))
	defer c.Close()

	fut, err := c.Start(context.Background())
	require.NoError(t, err)

	a, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src, a.Bytes())
	assert.Equal(t, "audio/webm", a.ContentType())
}
