package config

import (
	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig         = "config"
	FlagServer         = "server"
	FlagSessionFile    = "session"
	FlagBucket         = "bucket"
	FlagMaxDuration    = "max-duration"
	FlagTimeSlice      = "slice"
	FlagInlineUpload   = "inline-upload"
	FlagRequestTimeout = "timeout"
)

// RegisterFlags defines the global CLI flags on fs, defaulting to d.
func RegisterFlags(fs *pflag.FlagSet, d *Config) {
	fs.StringP(FlagConfig, "c", "", "path to a JSON config file")
	fs.StringP(FlagServer, "a", d.ServerEndpointAddr, "address and port of the voicefeed server")
	fs.String(FlagSessionFile, d.SessionFile, "file holding the signed-in session")
	fs.String(FlagBucket, d.Bucket, "object storage bucket for memo audio")
	fs.Duration(FlagMaxDuration, d.MaxDuration, "recording cap, 1s to 3m")
	fs.Duration(FlagTimeSlice, d.TimeSlice, "capture chunk interval")
	fs.Bool(FlagInlineUpload, d.InlineUpload, "upload audio through the server instead of a presigned URL")
	fs.Duration(FlagRequestTimeout, d.RequestTimeout, "timeout for each request")
}

// ConfigPath returns the --config value.
func ConfigPath(fs *pflag.FlagSet) string {
	p, _ := fs.GetString(FlagConfig)
	return p
}

// ApplyFlags copies every flag the user actually set over cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	set(FlagServer, func() (e error) { cfg.ServerEndpointAddr, e = fs.GetString(FlagServer); return })
	set(FlagSessionFile, func() (e error) { cfg.SessionFile, e = fs.GetString(FlagSessionFile); return })
	set(FlagBucket, func() (e error) { cfg.Bucket, e = fs.GetString(FlagBucket); return })
	set(FlagMaxDuration, func() (e error) { cfg.MaxDuration, e = fs.GetDuration(FlagMaxDuration); return })
	set(FlagTimeSlice, func() (e error) { cfg.TimeSlice, e = fs.GetDuration(FlagTimeSlice); return })
	set(FlagInlineUpload, func() (e error) { cfg.InlineUpload, e = fs.GetBool(FlagInlineUpload); return })
	set(FlagRequestTimeout, func() (e error) { cfg.RequestTimeout, e = fs.GetDuration(FlagRequestTimeout); return })

	return err
}
