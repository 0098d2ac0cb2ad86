package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr     string
	GRPCAddr     string
	LogLevel     string
	APITokenHash string // bcrypt hash of the bearer token guarding /v1; empty disables auth

	// Database (optional generation history)
	DatabaseURL string

	// Kafka (optional job queue + events)
	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaTopicJobs     string
	KafkaTopicEvents   string

	// Webhook (optional outcome notifications)
	WebhookURL    string
	WebhookSecret string

	// Storage
	StorageBackend  string // filesystem, s3, nats
	AudioOutputDir  string
	AudioMaxAge     time.Duration
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicURL     string
	NATSURL         string
	NATSAudioBucket string

	// Providers
	TextProvider      string // openai, gemini
	SpeechProvider    string // openai, gemini
	AudioFormat       string // mp3, opus, aac, flac, wav
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModelScript string
	OpenAIModelTTS    string
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL
	GeminiModelScript string
	GeminiModelTTS    string

	// Script sampling
	ScriptTemperature float64
	ScriptTopP        float64

	// Preference memory
	MemoryMaxEntries int
	MemoryTTL        time.Duration
}

// fileConfig is the optional TOML overlay read from CONFIG_FILE. Only keys that
// are present override the environment.
type fileConfig struct {
	Server struct {
		HTTPAddr *string `toml:"http_addr"`
		GRPCAddr *string `toml:"grpc_addr"`
		LogLevel *string `toml:"log_level"`
	} `toml:"server"`
	Storage struct {
		Backend     *string `toml:"backend"`
		OutputDir   *string `toml:"output_dir"`
		MaxAge      *string `toml:"max_age"`
		S3Bucket    *string `toml:"s3_bucket"`
		NATSBucket  *string `toml:"nats_bucket"`
		AudioFormat *string `toml:"audio_format"`
	} `toml:"storage"`
	Providers struct {
		Text        *string  `toml:"text"`
		Speech      *string  `toml:"speech"`
		ScriptModel *string  `toml:"script_model"`
		TTSModel    *string  `toml:"tts_model"`
		Temperature *float64 `toml:"temperature"`
		TopP        *float64 `toml:"top_p"`
	} `toml:"providers"`
	Memory struct {
		MaxEntries *int    `toml:"max_entries"`
		TTL        *string `toml:"ttl"`
	} `toml:"memory"`
}

// Load loads configuration from a .env file (if present), environment variables
// and the optional TOML file named by CONFIG_FILE, then validates it.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:     getEnv("GRPC_ADDR", ":9090"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		APITokenHash: getEnv("API_TOKEN_HASH", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "podcasts-worker"),
		KafkaTopicJobs:     getEnv("KAFKA_TOPIC_JOBS", "podcasts.jobs.v1"),
		KafkaTopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", "podcasts.events.v1"),

		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		StorageBackend:  getEnv("STORAGE_BACKEND", "filesystem"),
		AudioOutputDir:  getEnv("AUDIO_OUTPUT_DIR", "./audio_output"),
		AudioMaxAge:     getEnvDuration("AUDIO_MAX_AGE", 24*time.Hour),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", "podcasts-audio"),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3PublicURL:     getEnv("S3_PUBLIC_URL", ""),
		NATSURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		NATSAudioBucket: getEnv("NATS_AUDIO_BUCKET", "podcast-audio"),

		TextProvider:      getEnv("TEXT_PROVIDER", "openai"),
		SpeechProvider:    getEnv("SPEECH_PROVIDER", "openai"),
		AudioFormat:       getEnv("AUDIO_FORMAT", "mp3"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModelScript: getEnv("OPENAI_MODEL_SCRIPT", "gpt-4"),
		OpenAIModelTTS:    getEnv("OPENAI_MODEL_TTS", "tts-1-hd"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelScript: getEnv("GEMINI_MODEL_SCRIPT", "gemini-2.5-flash"),
		GeminiModelTTS:    getEnv("GEMINI_MODEL_TTS", "gemini-2.5-pro-preview-tts"),

		ScriptTemperature: getEnvFloat("SCRIPT_TEMPERATURE", 0.7),
		ScriptTopP:        getEnvFloat("SCRIPT_TOP_P", 0.9),

		MemoryMaxEntries: getEnvInt("MEMORY_MAX_ENTRIES", 100),
		MemoryTTL:        getEnvDuration("MEMORY_TTL", 24*time.Hour),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays values from a TOML file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.applyTOML(data)
}

func (c *Config) applyTOML(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.HTTPAddr, fc.Server.HTTPAddr)
	setString(&c.GRPCAddr, fc.Server.GRPCAddr)
	setString(&c.LogLevel, fc.Server.LogLevel)

	setString(&c.StorageBackend, fc.Storage.Backend)
	setString(&c.AudioOutputDir, fc.Storage.OutputDir)
	setString(&c.S3Bucket, fc.Storage.S3Bucket)
	setString(&c.NATSAudioBucket, fc.Storage.NATSBucket)
	setString(&c.AudioFormat, fc.Storage.AudioFormat)
	if err := setDuration(&c.AudioMaxAge, fc.Storage.MaxAge); err != nil {
		return fmt.Errorf("storage.max_age: %w", err)
	}

	setString(&c.TextProvider, fc.Providers.Text)
	setString(&c.SpeechProvider, fc.Providers.Speech)
	if fc.Providers.ScriptModel != nil {
		if c.TextProvider == "gemini" {
			c.GeminiModelScript = *fc.Providers.ScriptModel
		} else {
			c.OpenAIModelScript = *fc.Providers.ScriptModel
		}
	}
	if fc.Providers.TTSModel != nil {
		if c.SpeechProvider == "gemini" {
			c.GeminiModelTTS = *fc.Providers.TTSModel
		} else {
			c.OpenAIModelTTS = *fc.Providers.TTSModel
		}
	}
	if fc.Providers.Temperature != nil {
		c.ScriptTemperature = *fc.Providers.Temperature
	}
	if fc.Providers.TopP != nil {
		c.ScriptTopP = *fc.Providers.TopP
	}

	if fc.Memory.MaxEntries != nil {
		c.MemoryMaxEntries = *fc.Memory.MaxEntries
	}
	if err := setDuration(&c.MemoryTTL, fc.Memory.TTL); err != nil {
		return fmt.Errorf("memory.ttl: %w", err)
	}
	return nil
}

// Validate checks ranges and enumerated values.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "filesystem", "s3", "nats":
	default:
		return errors.New("STORAGE_BACKEND must be one of: filesystem, s3, nats")
	}
	switch c.TextProvider {
	case "openai", "gemini":
	default:
		return errors.New("TEXT_PROVIDER must be one of: openai, gemini")
	}
	switch c.SpeechProvider {
	case "openai", "gemini":
	default:
		return errors.New("SPEECH_PROVIDER must be one of: openai, gemini")
	}
	switch c.AudioFormat {
	case "mp3", "opus", "aac", "flac", "wav":
	default:
		return errors.New("AUDIO_FORMAT must be one of: mp3, opus, aac, flac, wav")
	}
	if c.SpeechProvider == "gemini" && c.AudioFormat != "wav" {
		return errors.New("SPEECH_PROVIDER=gemini only produces AUDIO_FORMAT=wav")
	}
	if c.MemoryMaxEntries < 1 {
		return errors.New("MEMORY_MAX_ENTRIES must be at least 1")
	}
	if c.MemoryTTL <= 0 {
		return errors.New("MEMORY_TTL must be positive")
	}
	if c.ScriptTemperature < 0 || c.ScriptTemperature > 2 {
		return errors.New("SCRIPT_TEMPERATURE must be between 0 and 2")
	}
	if c.ScriptTopP <= 0 || c.ScriptTopP > 1 {
		return errors.New("SCRIPT_TOP_P must be in (0, 1]")
	}
	return nil
}

// KafkaEnabled reports whether a broker list is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
