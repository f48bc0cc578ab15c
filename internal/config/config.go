package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"regscout-raw"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Crawl politeness
	UserAgent         string        `envconfig:"USER_AGENT" default:"RegScoutBot/1.0 (+https://regscout.lexfield.io/bot)"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE" default:"10"`
	MinDelayMS        int           `envconfig:"MIN_DELAY_MS" default:"1000"`
	MaxDelayMS        int           `envconfig:"MAX_DELAY_MS" default:"3000"`
	RobotsTTL         time.Duration `envconfig:"ROBOTS_TTL" default:"1h"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`

	// Ingestion pipeline
	ChunkSize       int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap    int `envconfig:"CHUNK_OVERLAP" default:"200"`
	ExtractMaxChars int `envconfig:"EXTRACT_MAX_CHARS" default:"8000"`

	// Scheduler
	DrainBatchSize int           `envconfig:"DRAIN_BATCH_SIZE" default:"10"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("REGSCOUT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.MinDelayMS > cfg.MaxDelayMS {
		return nil, fmt.Errorf("MIN_DELAY_MS (%d) cannot exceed MAX_DELAY_MS (%d)", cfg.MinDelayMS, cfg.MaxDelayMS)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// MinDelay returns the politeness jitter floor as a duration.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the politeness jitter ceiling as a duration.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
