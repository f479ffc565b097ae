package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs swaps os.Args for the duration of a test.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	t.Cleanup(func() { os.Args = old })
	os.Args = append([]string{"voicefeed-server"}, args...)
}

func TestParseFlags_AllFlags(t *testing.T) {
	withArgs(t,
		"-a", "127.0.0.1:9090", "-o", ":9091",
		"-d", "postgres://db", "-s", "secret", "-t", "1", "-r", "3",
		"-u", "user", "-p", "password", "-b", "voice-memos", "-g", "us-west-1", "-e", "http://minio:9000",
		"-n", "nats://n:4222", "-l", "warn", "-f", "server.log",
	)

	got := &Config{}
	require.NotPanics(t, func() { parseFlags(got) })

	want := &Config{
		EndpointAddrGRPC:             "127.0.0.1:9090",
		EndpointAddrHTTP:             ":9091",
		DatabaseDSN:                  "postgres://db",
		SecretKey:                    "secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: 3 * time.Minute,
		S3RootUser:                   "user",
		S3RootPassword:               "password",
		S3Bucket:                     "voice-memos",
		S3Region:                     "us-west-1",
		S3BaseEndpoint:               "http://minio:9000",
		NATSURL:                      "nats://n:4222",
		LogLevel:                     "warn",
		LogFile:                      "server.log",
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestParseFlags_KeepsUnsetFields(t *testing.T) {
	withArgs(t, "-c", "cfg.json", "-a", ":1")

	got := &Config{S3Bucket: "voice-memos", LogLevel: "info"}
	require.NotPanics(t, func() { parseFlags(got) })

	assert.Equal(t, ":1", got.EndpointAddrGRPC)
	assert.Equal(t, "voice-memos", got.S3Bucket)
	assert.Equal(t, "info", got.LogLevel)
}

func TestParseFlags_BadDurationPanics(t *testing.T) {
	withArgs(t, "-t", "x")
	require.Panics(t, func() { parseFlags(&Config{}) })
}
