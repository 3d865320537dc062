package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application settings, read from the environment
type Config struct {
	Port          string `mapstructure:"PORT"`
	DBPath        string `mapstructure:"DB_PATH"`
	TracksDir     string `mapstructure:"TRACKS_DIR"`
	JWTSecret     string `mapstructure:"JWT_SECRET"` // empty disables auth on mutating routes
	RedisAddr     string `mapstructure:"REDIS_ADDR"` // empty keeps the live stream in-process
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisChannel  string `mapstructure:"REDIS_CHANNEL"`

	GPXDecoder        string `mapstructure:"GPX_DECODER"` // heuristic | structured
	CheckpointEvery   int    `mapstructure:"CHECKPOINT_EVERY"`
	CurrentPaceWindow int    `mapstructure:"CURRENT_PACE_WINDOW"`
	IngestRateLimit   int    `mapstructure:"INGEST_RATE_LIMIT"` // fix requests per minute per client

	OSMTraceURL     string        `mapstructure:"OSM_TRACE_URL"` // %s is replaced by the trace id
	OSMFetchTimeout time.Duration `mapstructure:"OSM_FETCH_TIMEOUT"`
	MaxImportBytes  int64         `mapstructure:"MAX_IMPORT_BYTES"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"PORT":                ":8080",
	"DB_PATH":             "./data/hiking.db",
	"TRACKS_DIR":          "./data/tracks",
	"JWT_SECRET":          "",
	"REDIS_ADDR":          "",
	"REDIS_PASSWORD":      "",
	"REDIS_CHANNEL":       "hiking:recording",
	"GPX_DECODER":         "heuristic",
	"CHECKPOINT_EVERY":    100,
	"CURRENT_PACE_WINDOW": 5,
	"INGEST_RATE_LIMIT":   600,
	"OSM_TRACE_URL":       "https://www.openstreetmap.org/traces/%s/data",
	"OSM_FETCH_TIMEOUT":   "30s",
	"MAX_IMPORT_BYTES":    32 << 20,
	"SHUTDOWN_TIMEOUT":    "10s",
}

// Load reads the configuration from environment variables over the defaults
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
