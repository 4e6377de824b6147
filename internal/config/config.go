// Package config loads process configuration via spf13/viper, binding
// environment variables under the WOWSREPLAY_ prefix and falling back to
// an optional config file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RetentionPolicy controls what happens to a raw replay blob once it is
// older than RetentionAfterHours. Left configurable rather than a
// hard-coded TTL, per the retention-policy open question.
type RetentionPolicy string

const (
	RetentionKeep     RetentionPolicy = "keep"
	RetentionCompress RetentionPolicy = "compress"
	RetentionDelete   RetentionPolicy = "delete"
)

// Config is the full set of process configuration this pipeline reads at
// startup. Every field can be overridden by a WOWSREPLAY_<FIELD> env var.
type Config struct {
	SQLiteDSN       string
	ObjectStoreRoot string

	HTTPAddr string

	FFmpegPath string

	WebhookURL string

	RetentionPolicy     RetentionPolicy
	RetentionAfterHours int

	SupportedClientVersions []string
}

// Load reads configuration from environment variables (prefix
// WOWSREPLAY_) and, if present, a config file named "wowsreplay" on the
// search paths below. Missing values fall back to sane local defaults so
// the binary runs out of the box in development.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WOWSREPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sqlite_dsn", "wowsreplay.db")
	v.SetDefault("object_store_root", "./data/objects")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("webhook_url", "")
	v.SetDefault("retention_policy", string(RetentionKeep))
	v.SetDefault("retention_after_hours", 24*14)
	v.SetDefault("supported_client_versions", []string{"13.5.0", "14.10.0", "14.11.0"})

	v.SetConfigName("wowsreplay")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		SQLiteDSN:               v.GetString("sqlite_dsn"),
		ObjectStoreRoot:         v.GetString("object_store_root"),
		HTTPAddr:                v.GetString("http_addr"),
		FFmpegPath:              v.GetString("ffmpeg_path"),
		WebhookURL:              v.GetString("webhook_url"),
		RetentionPolicy:         RetentionPolicy(v.GetString("retention_policy")),
		RetentionAfterHours:     v.GetInt("retention_after_hours"),
		SupportedClientVersions: v.GetStringSlice("supported_client_versions"),
	}
	return cfg, nil
}
