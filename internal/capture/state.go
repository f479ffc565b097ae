package capture

import (
	"errors"
	"time"
)

// State is the lifecycle state of a capture session.
type State int32

const (
	Idle State = iota
	Requesting
	Recording
	Stopped
	Uploading
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	case Uploading:
		return "uploading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultMaxDuration is the hard recording cap in seconds.
const DefaultMaxDuration = 180

var (
	ErrCanceled = errors.New("recording cancelled")
	ErrClosed   = errors.New("capture controller closed")
)

// Status is what observers see after every state or elapsed-time change.
type Status struct {
	State   State
	Elapsed int
	Max     int
}

// Artifact is the finished audio of one recording. It is immutable.
type Artifact struct {
	data        []byte
	contentType string
	duration    int
	createdAt   time.Time
}

func newArtifact(data []byte, contentType string, duration int) *Artifact {
	return &Artifact{data: data, contentType: contentType, duration: duration, createdAt: time.Now()}
}

// NewArtifact wraps existing audio bytes, e.g. a file chosen for upload.
// The slice is copied.
func NewArtifact(data []byte, contentType string, durationSeconds int) *Artifact {
	return newArtifact(append([]byte(nil), data...), contentType, durationSeconds)
}

// Bytes returns a copy of the audio payload.
func (a *Artifact) Bytes() []byte {
	return append([]byte(nil), a.data...)
}

func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.data)
}

func (a *Artifact) ContentType() string { return a.contentType }

// DurationSeconds is the recorded length as counted by the timer.
func (a *Artifact) DurationSeconds() int { return a.duration }

func (a *Artifact) CreatedAt() time.Time { return a.createdAt }
