// Package capture implements the recording state machine of the voicefeed
// client.
//
// A Controller owns at most one CaptureSession at a time. The session moves
// through Idle, Requesting, Recording, Stopped, Uploading and Failed. All
// session state lives in a single goroutine that consumes commands from
// the public methods, device-open results, audio chunks and one-second
// timer ticks. Public methods post a command and wait for its reply, so the
// controller is safe for concurrent use.
//
// The device stream is released on every path out of Recording: manual
// stop, automatic stop at the duration cap, cancel, stream failure and
// Close.
package capture
