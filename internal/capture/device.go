package capture

import "context"

// Device is a source of live audio.
type Device interface {
	// Open acquires the device. ctx bounds the acquisition only; the
	// returned stream lives until Stop is called.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open device. The producer closes Chunks after Stop has been
// called and any buffered audio has been delivered, or when the source
// ends on its own.
type Stream interface {
	Chunks() <-chan []byte
	ContentType() string
	// Stop halts capture. It is safe to call more than once.
	Stop()
	// Err reports why the stream ended, once Chunks is closed. A nil
	// error after Stop is a normal end.
	Err() error
}

// Prober is implemented by devices that can report, without opening
// anything, that capture is impossible on this host.
type Prober interface {
	Probe() error
}

// Finalizer is implemented by streams whose concatenated chunks need a
// container around them before playback.
type Finalizer interface {
	Finalize(data []byte) []byte
}
