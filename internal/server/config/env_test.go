package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overrides set variables", func(t *testing.T) {
		t.Setenv("VOICEFEED_DATABASE_DSN", "postgres://env/db")
		t.Setenv("VOICEFEED_NATS_URL", "nats://broker:4222")
		t.Setenv("VOICEFEED_ACCESS_TOKEN_VALIDITY_DURATION", "5m")
		t.Setenv("VOICEFEED_LOG_LEVEL", "debug")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "postgres://env/db", cfg.DatabaseDSN)
		assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
	})

	t.Run("allowed origins are comma separated", func(t *testing.T) {
		t.Setenv("VOICEFEED_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	})

	t.Run("unset variables keep values", func(t *testing.T) {
		cfg := &Config{SecretKey: "keep-me", S3Bucket: "b"}
		parseEnv(cfg)

		assert.Equal(t, "keep-me", cfg.SecretKey)
		assert.Equal(t, "b", cfg.S3Bucket)
	})
}
