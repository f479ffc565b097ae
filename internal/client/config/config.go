// Package config loads runtime configuration for the voicefeed CLI.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional JSON file named by --config/-c.
//  3. Command-line flags registered with RegisterFlags.
//
// The JSON loader uses timex.Duration, so durations may be strings like
// "250ms" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "session_file": "/home/me/.voicefeed/session.json",
//	  "bucket": "voice-memos",
//	  "max_duration": "3m",
//	  "time_slice": "250ms",
//	  "inline_upload": false,
//	  "request_timeout": "15s"
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/common"
)

// Config holds runtime settings for the voicefeed CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - SessionFile: where tokens are kept between invocations.
//   - Bucket: object storage bucket for memo audio.
//   - MaxDuration: recording cap, 1s to 3m; whole seconds are used.
//   - TimeSlice: how often the capture device emits a chunk.
//   - InlineUpload: send audio through the gRPC server instead of a presigned URL.
//   - RequestTimeout: bound on each unary call.
type Config struct {
	ServerEndpointAddr string
	SessionFile        string
	Bucket             string
	MaxDuration        time.Duration
	TimeSlice          time.Duration
	InlineUpload       bool
	RequestTimeout     time.Duration
}

// DefaultSessionFile is ~/.voicefeed/session.json, or a relative path when
// the home directory is unknown.
func DefaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".voicefeed", "session.json")
	}
	return filepath.Join(home, ".voicefeed", "session.json")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SessionFile = DefaultSessionFile()
	c.Bucket = common.BucketVoiceMemos
	c.MaxDuration = MaxRecording
	c.TimeSlice = 250 * time.Millisecond
	c.InlineUpload = false
	c.RequestTimeout = 15 * time.Second
}

// MaxRecording is the hard recording cap. A configured cap may only lower it.
const MaxRecording = 180 * time.Second

// CheckMaxDuration rejects caps below one second or above MaxRecording.
func CheckMaxDuration(d time.Duration) error {
	if d < time.Second || d > MaxRecording {
		return fmt.Errorf("%w: max duration must be between 1s and %s, got %s", common.ErrorValidation, MaxRecording, d)
	}
	return nil
}

// Validate checks the settings that have bounds.
func (c *Config) Validate() error {
	return CheckMaxDuration(c.MaxDuration)
}

// MaxDurationSeconds is MaxDuration in whole seconds.
func (c *Config) MaxDurationSeconds() int {
	return int(c.MaxDuration / time.Second)
}

// LoadConfig applies defaults and then the JSON file at path, if any.
// Flags are applied separately with ApplyFlags once they are parsed.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
