package config

import (
	"log"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// TrackerConfig controls the user tracking core: history bounds, the save
// debounce window and the persisted storage keys.
type TrackerConfig struct {
	MaxHistory     int    `mapstructure:"max_history"`
	MaxChatHistory int    `mapstructure:"max_chat_history"`
	SaveDebounceMS int    `mapstructure:"save_debounce_ms"`
	MaxImportBytes int    `mapstructure:"max_import_bytes"`
	ShowGapSeconds int    `mapstructure:"show_gap_seconds"`
	UsersKey       string `mapstructure:"users_key"`
	BackupKey      string `mapstructure:"backup_key"`
}

// CoachConfig holds the defaults for the broadcaster-facing settings that
// travel inside export envelopes.
type CoachConfig struct {
	BroadcasterName string `mapstructure:"broadcaster_name"`
	PromptLanguage  string `mapstructure:"prompt_language"`
	PromptDelay     int    `mapstructure:"prompt_delay"`
	AIModel         string `mapstructure:"ai_model"`
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	WebServer WebServerConfig `mapstructure:"webserver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Coach     CoachConfig     `mapstructure:"coach"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("COACH")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

// DefaultTracker returns the tracker settings used when no config file is
// loaded (tests construct trackers directly from this).
func DefaultTracker() TrackerConfig {
	return TrackerConfig{
		MaxHistory:     1000,
		MaxChatHistory: 50,
		SaveDebounceMS: 1000,
		MaxImportBytes: 10 * 1024 * 1024,
		ShowGapSeconds: 30,
		UsersKey:       "broadcastCoachUsers",
		BackupKey:      "broadcastCoachBackup",
	}
}

func setDefaults() {
	viper.SetDefault("log_level", "info")

	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.scheme", "http")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)

	// Redis defaults
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 50)
	viper.SetDefault("cache.ttl_seconds", 60)
	viper.SetDefault("cache.counter_size", 100000)

	// RateLimit defaults
	viper.SetDefault("ratelimit.requests_per_second", 20.0)
	viper.SetDefault("ratelimit.burst", 40)

	// Tracker defaults
	def := DefaultTracker()
	viper.SetDefault("tracker.max_history", def.MaxHistory)
	viper.SetDefault("tracker.max_chat_history", def.MaxChatHistory)
	viper.SetDefault("tracker.save_debounce_ms", def.SaveDebounceMS)
	viper.SetDefault("tracker.max_import_bytes", def.MaxImportBytes)
	viper.SetDefault("tracker.show_gap_seconds", def.ShowGapSeconds)
	viper.SetDefault("tracker.users_key", def.UsersKey)
	viper.SetDefault("tracker.backup_key", def.BackupKey)

	// Coach defaults
	viper.SetDefault("coach.broadcaster_name", "")
	viper.SetDefault("coach.prompt_language", "en-US")
	viper.SetDefault("coach.prompt_delay", 5)
	viper.SetDefault("coach.ai_model", "@cf/meta/llama-3.2-1b-instruct")
}
