// Package common contains shared constants and sentinel errors used across
// voicefeed components.
package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Table names as seen by change notifications.
const (
	TableVoiceMemos   = "voice_memos"
	TableUserProfiles = "user_profiles"
)

// BucketVoiceMemos is the object storage bucket holding memo audio.
const BucketVoiceMemos = "voice-memos"

// UnknownAuthorName is shown for memos whose author has no profile.
const UnknownAuthorName = "Unknown User"
