package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/dmitrijs2005/voicefeed/internal/common"
)

// ReaderDevice streams pre-recorded audio as if it came from a microphone.
// Each Slice it emits up to ChunkSize bytes. With Slice zero it emits as
// fast as the source can be read.
type ReaderDevice struct {
	Source    func() (io.ReadCloser, error)
	MIME      string
	ChunkSize int
	Slice     time.Duration
}

// FileDevice streams the file at path, paced at one chunk per slice.
// Path "-" reads standard input.
func FileDevice(path string, slice time.Duration) *ReaderDevice {
	return &ReaderDevice{
		Source: func() (io.ReadCloser, error) {
			if path == "-" {
				return io.NopCloser(os.Stdin), nil
			}
			return os.Open(path)
		},
		MIME:      audio.ContentTypeFor(path),
		ChunkSize: audio.DefaultFormat.ByteRate() / 4,
		Slice:     slice,
	}
}

func (d *ReaderDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := d.Source()
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", common.ErrPermissionDenied, err)
		}
		return nil, err
	}

	size := d.ChunkSize
	if size <= 0 {
		size = 4096
	}
	s := &readerStream{
		rc:   rc,
		ch:   make(chan []byte, 4),
		stop: make(chan struct{}),
		ct:   d.MIME,
	}
	go s.run(size, d.Slice)
	return s, nil
}

type readerStream struct {
	rc       io.ReadCloser
	ch       chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	ct       string

	mu  sync.Mutex
	err error
}

func (s *readerStream) run(size int, slice time.Duration) {
	defer close(s.ch)
	defer s.rc.Close()

	var tick <-chan time.Time
	if slice > 0 {
		t := time.NewTicker(slice)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick != nil {
			select {
			case <-tick:
			case <-s.stop:
				return
			}
		} else if s.stopped() {
			return
		}

		buf := make([]byte, size)
		n, err := io.ReadFull(s.rc, buf)
		if n > 0 {
			s.ch <- buf[:n]
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return
		}
		if err != nil {
			if !s.stopped() {
				s.setErr(err)
			}
			return
		}
	}
}

func (s *readerStream) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *readerStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *readerStream) Chunks() <-chan []byte { return s.ch }
func (s *readerStream) ContentType() string   { return s.ct }

func (s *readerStream) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *readerStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
