package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL    string
	SnapshotTTL time.Duration

	Exam          ExamConfig
	Transcription TranscriptionConfig
	Catalog       CatalogConfig
	Kafka         KafkaConfig

	TelegramToken string
}

type ExamConfig struct {
	DurationSeconds     int
	ExtraTimeMultiplier float64
	AutoSubmitOnExpiry  bool
}

type TranscriptionConfig struct {
	APIKey  string // empty disables voice input
	Model   string
	Timeout time.Duration
}

type CatalogConfig struct {
	QuestionsFile string // empty uses the built-in questions
	Watch         bool
}

type KafkaConfig struct {
	Brokers []string // empty disables the audit sink
	Topic   string
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    utils.ParseLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:    os.Getenv("REDIS_URL"),
		Transcription: TranscriptionConfig{
			APIKey: firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY")),
			Model:  getEnv("TRANSCRIPTION_MODEL", "gemini-1.5-flash"),
		},
		Catalog: CatalogConfig{
			QuestionsFile: os.Getenv("QUESTIONS_FILE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "exam-session-events"),
		},
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.SnapshotTTL, err = getDuration("SNAPSHOT_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Transcription.Timeout, err = getDuration("TRANSCRIPTION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Exam.DurationSeconds, err = getInt("EXAM_DURATION_SECONDS", 3600); err != nil {
		return nil, err
	}
	if cfg.Exam.ExtraTimeMultiplier, err = getFloat("EXTRA_TIME_MULTIPLIER", 1.5); err != nil {
		return nil, err
	}
	if cfg.Exam.AutoSubmitOnExpiry, err = getBool("AUTO_SUBMIT_ON_EXPIRY", true); err != nil {
		return nil, err
	}
	if cfg.Catalog.Watch, err = getBool("WATCH_QUESTIONS_FILE", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Exam.DurationSeconds <= 0 {
		return fmt.Errorf("EXAM_DURATION_SECONDS must be positive, got %d", c.Exam.DurationSeconds)
	}
	if c.Exam.ExtraTimeMultiplier < 1 {
		return fmt.Errorf("EXTRA_TIME_MULTIPLIER must be at least 1, got %v", c.Exam.ExtraTimeMultiplier)
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("TRANSCRIPTION_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
