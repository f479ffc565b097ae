package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "webm", ExtensionFor("audio/webm;codecs=opus"))
	assert.Equal(t, "wav", ExtensionFor("Audio/WAV"))
	assert.Equal(t, "bin", ExtensionFor("video/mp4"))
	assert.Equal(t, "bin", ExtensionFor(""))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", ContentTypeFor("/tmp/memo.WAV"))
	assert.Equal(t, "audio/ogg", ContentTypeFor("note.oga"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("notes.txt"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("noext"))
}
