package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by parseEnv,
// e.g. VOICEFEED_DATABASE_DSN.
const EnvPrefix = "VOICEFEED"

// parseEnv overlays VOICEFEED_* environment variables onto config.
func parseEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("endpoint_addr_grpc", &config.EndpointAddrGRPC)
	str("endpoint_addr_http", &config.EndpointAddrHTTP)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	str("s3_root_user", &config.S3RootUser)
	str("s3_root_password", &config.S3RootPassword)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("s3_public_base_url", &config.S3PublicBaseURL)
	str("nats_url", &config.NATSURL)
	str("log_level", &config.LogLevel)
	str("log_file", &config.LogFile)

	// Comma separated, e.g. VOICEFEED_ALLOWED_ORIGINS=https://a.example,https://b.example
	if v.IsSet("allowed_origins") {
		config.AllowedOrigins = splitList(v.GetString("allowed_origins"))
	}
	if v.IsSet("access_token_validity_duration") {
		config.AccessTokenValidityDuration = v.GetDuration("access_token_validity_duration")
	}
	if v.IsSet("refresh_token_validity_duration") {
		config.RefreshTokenValidityDuration = v.GetDuration("refresh_token_validity_duration")
	}
	if v.IsSet("upload_url_expiry") {
		config.UploadURLExpiry = v.GetDuration("upload_url_expiry")
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
