// Package common defines shared constants and sentinel errors used across
// client and server layers of voicefeed. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrUnauthenticated is returned when no user is signed in.
	ErrUnauthenticated = errors.New("not signed in")
)

// Capture and publish workflow errors. Each of them ends up as a short
// user-visible notice; none is retried automatically.
var (
	ErrPermissionDenied    = errors.New("microphone permission denied")
	ErrCaptureUnavailable  = errors.New("audio capture is not available on this device")
	ErrCaptureEmpty        = errors.New("no audio data recorded")
	ErrUploadFailed        = errors.New("upload failed")
	ErrDatabaseWriteFailed = errors.New("failed to save voice memo")
	ErrProfileFetchFailed  = errors.New("failed to load author profiles")
	ErrFeedFetchFailed     = errors.New("failed to load voice memos")

	// ErrEmptyArtifact is the publish-side name for a capture that holds no bytes.
	ErrEmptyArtifact = ErrCaptureEmpty

	ErrSessionActive = errors.New("a recording session is already active")
	ErrInvalidState  = errors.New("operation not allowed in current recording state")
)
