package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/audio"
	"github.com/dmitrijs2005/voicefeed/internal/common"
)

// ArecordDevice captures the default ALSA microphone by running arecord
// and reading raw little-endian PCM from its stdout. The concatenated
// recording is wrapped in a WAV container.
type ArecordDevice struct {
	Binary string
	Format audio.Format
	// Slice is the chunk length. Defaults to 250ms.
	Slice time.Duration

	lookPath func(string) (string, error)
	command  func(name string, args ...string) *exec.Cmd
}

// NewArecordDevice returns a device using arecord from PATH at the default format.
func NewArecordDevice() *ArecordDevice {
	return &ArecordDevice{
		Binary: "arecord",
		Format: audio.DefaultFormat,
		Slice:  250 * time.Millisecond,
	}
}

func (d *ArecordDevice) binary() string {
	if d.Binary == "" {
		return "arecord"
	}
	return d.Binary
}

// Probe reports ErrCaptureUnavailable when arecord is not installed.
func (d *ArecordDevice) Probe() error {
	lp := d.lookPath
	if lp == nil {
		lp = exec.LookPath
	}
	if _, err := lp(d.binary()); err != nil {
		return fmt.Errorf("%w: %s not found", common.ErrCaptureUnavailable, d.binary())
	}
	return nil
}

func (d *ArecordDevice) args() []string {
	return []string{
		"-q",
		"-t", "raw",
		"-f", "S16_LE",
		"-r", strconv.Itoa(d.Format.SampleRate),
		"-c", strconv.Itoa(d.Format.Channels),
		"-",
	}
}

// Open starts arecord and waits for the first chunk of audio, which is
// the point where the device is known to be granted.
func (d *ArecordDevice) Open(ctx context.Context) (Stream, error) {
	if err := d.Probe(); err != nil {
		return nil, err
	}

	mk := d.command
	if mk == nil {
		mk = exec.Command
	}
	cmd := mk(d.binary(), d.args()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCaptureUnavailable, err)
	}

	slice := d.Slice
	if slice <= 0 {
		slice = 250 * time.Millisecond
	}
	size := int(int64(d.Format.ByteRate()) * int64(slice) / int64(time.Second))
	if size <= 0 {
		size = 4096
	}

	type first struct {
		b   []byte
		err error
	}
	got := make(chan first, 1)
	go func() {
		buf := make([]byte, size)
		n, err := io.ReadFull(stdout, buf)
		got <- first{b: buf[:n], err: err}
	}()

	select {
	case f := <-got:
		if len(f.b) == 0 {
			_ = cmd.Wait()
			return nil, classifyArecord(stderr.String(), f.err)
		}
		s := &arecordStream{
			cmd:    cmd,
			stdout: stdout,
			ch:     make(chan []byte, 8),
			format: d.Format,
			stderr: &stderr,
		}
		go s.run(f.b, f.err, size)
		return s, nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, ctx.Err()
	}
}

func classifyArecord(stderr string, readErr error) error {
	msg := strings.TrimSpace(stderr)
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(low, "permission denied"), strings.Contains(low, "operation not permitted"):
		return fmt.Errorf("%w: %s", common.ErrPermissionDenied, msg)
	case msg != "":
		return fmt.Errorf("%w: %s", common.ErrCaptureUnavailable, msg)
	case readErr != nil && !errors.Is(readErr, io.EOF):
		return fmt.Errorf("%w: %v", common.ErrCaptureUnavailable, readErr)
	default:
		return fmt.Errorf("%w: device produced no audio", common.ErrCaptureUnavailable)
	}
}

type arecordStream struct {
	cmd    *exec.Cmd
	stdout io.Reader
	ch     chan []byte
	format audio.Format
	stderr *bytes.Buffer

	stopOnce sync.Once
	mu       sync.Mutex
	stopped  bool
	err      error
}

func (s *arecordStream) run(first []byte, firstErr error, size int) {
	defer close(s.ch)

	s.ch <- first
	err := firstErr
	for err == nil {
		buf := make([]byte, size)
		var n int
		n, err = io.ReadFull(s.stdout, buf)
		if n > 0 {
			s.ch <- buf[:n]
		}
	}

	werr := s.cmd.Wait()
	if s.isStopped() {
		return
	}
	// arecord exited on its own.
	if werr != nil {
		s.setErr(classifyArecord(s.stderr.String(), werr))
	}
}

func (s *arecordStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *arecordStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *arecordStream) Chunks() <-chan []byte { return s.ch }
func (s *arecordStream) ContentType() string   { return "audio/wav" }

// Stop interrupts arecord so it flushes what it has and exits.
func (s *arecordStream) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		if s.cmd.Process == nil {
			return
		}
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}
	})
}

func (s *arecordStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *arecordStream) Finalize(pcm []byte) []byte {
	return audio.EncodeWAV(pcm, s.format)
}
