package config

import (
	"os"
	"strings"
	"time"
)

// DefaultDataDir is where data files live when the config does not say otherwise.
const DefaultDataDir = "/usr/local/var/scrible/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDataDir + "/db/scrible.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = DefaultDataDir + "/indices/vectors"
	}
	if cfg.Ingestion.MaxConcurrent == 0 {
		cfg.Ingestion.MaxConcurrent = 4
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 512
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 64
	}
	if cfg.Ingestion.MaxUploadBytes == 0 {
		cfg.Ingestion.MaxUploadBytes = 20 << 20
	}
	if cfg.Ingestion.MaxContentChars == 0 {
		cfg.Ingestion.MaxContentChars = 6000
	}
	if cfg.Ingestion.ReprocessSuccessRate == 0 {
		cfg.Ingestion.ReprocessSuccessRate = 0.8
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = 60 * time.Second
	}
	if cfg.Generator.RequestsPerSecond == 0 {
		cfg.Generator.RequestsPerSecond = 2
	}
	if cfg.Generator.Burst == 0 {
		cfg.Generator.Burst = 4
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1000
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.3
	}
	if cfg.Events.ClientBuffer == 0 {
		cfg.Events.ClientBuffer = 16
	}
	if cfg.Events.Heartbeat == 0 {
		cfg.Events.Heartbeat = 15 * time.Second
	}
	if cfg.Events.RedisChannel == "" {
		cfg.Events.RedisChannel = "scrible-events"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".srt", ".vtt"}
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvGeneratorAPIKey  = "SCRIBLE_GENERATOR_API_KEY"
	EnvGeneratorBaseURL = "SCRIBLE_GENERATOR_BASE_URL"
	EnvGeneratorModel   = "SCRIBLE_GENERATOR_MODEL"
	EnvRedisAddr        = "SCRIBLE_REDIS_ADDR"
	EnvDatabasePath     = "SCRIBLE_DATABASE_PATH"
)

// ApplyEnv overrides secrets and endpoints from the environment. Unset or blank
// variables leave the config untouched.
func ApplyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Generator.APIKey, EnvGeneratorAPIKey)
	set(&cfg.Generator.BaseURL, EnvGeneratorBaseURL)
	set(&cfg.Generator.Model, EnvGeneratorModel)
	set(&cfg.Events.RedisAddr, EnvRedisAddr)
	set(&cfg.Storage.DatabasePath, EnvDatabasePath)
}
