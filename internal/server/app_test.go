package server

import (
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	c := &config.Config{LogLevel: "info"}
	_, ok := newLogger(c).(*logging.SlogLogger)
	assert.True(t, ok, "stdout logger by default")

	c.LogFile = filepath.Join(t.TempDir(), "server.log")
	_, ok = newLogger(c).(*logging.ZapLogger)
	assert.True(t, ok, "file logger when LogFile is set")
}

func TestNewBroker_DefaultsToMemory(t *testing.T) {
	b, err := newBroker(&config.Config{}, logging.Discard())
	require.NoError(t, err)
	_, ok := b.(*changes.MemoryBroker)
	assert.True(t, ok)
}

func TestNewBroker_BadNATSURL(t *testing.T) {
	_, err := newBroker(&config.Config{NATSURL: "nats://127.0.0.1:1"}, logging.Discard())
	assert.Error(t, err)
}
