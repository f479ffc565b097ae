package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/voicefeed/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key from a zero value, so a partial file only
// overrides what it names.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	SessionFile        *string         `json:"session_file"`
	Bucket             *string         `json:"bucket"`
	MaxDuration        *timex.Duration `json:"max_duration"`
	TimeSlice          *timex.Duration `json:"time_slice"`
	InlineUpload       *bool           `json:"inline_upload"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values from the JSON file at path. An empty
// path loads nothing.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.SessionFile != nil {
		cfg.SessionFile = *jc.SessionFile
	}
	if jc.Bucket != nil {
		cfg.Bucket = *jc.Bucket
	}
	if jc.MaxDuration != nil {
		cfg.MaxDuration = jc.MaxDuration.Duration
	}
	if jc.TimeSlice != nil {
		cfg.TimeSlice = jc.TimeSlice.Duration
	}
	if jc.InlineUpload != nil {
		cfg.InlineUpload = *jc.InlineUpload
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
