package audio

import (
	"path/filepath"
	"strings"
)

var extByType = map[string]string{
	"audio/webm": "webm",
	"audio/wav":  "wav",
	"audio/ogg":  "ogg",
	"audio/mpeg": "mp3",
	"audio/mp4":  "m4a",
}

var typeByExt = map[string]string{
	"webm": "audio/webm",
	"wav":  "audio/wav",
	"wave": "audio/wav",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
}

// ExtensionFor maps a content type such as "audio/webm;codecs=opus" to a
// file extension. Unknown types map to "bin".
func ExtensionFor(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	if ext, ok := extByType[strings.TrimSpace(strings.ToLower(base))]; ok {
		return ext
	}
	return "bin"
}

// ContentTypeFor guesses an audio content type from a file name. Unknown
// extensions map to application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ct, ok := typeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
