package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	for _, key := range []string{"HTTP_ADDR", "STORAGE_BACKEND", "KAFKA_BROKERS", "MEMORY_TTL", "CONFIG_FILE", "AUDIO_FORMAT", "SPEECH_PROVIDER"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.StorageBackend != "filesystem" {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
	if cfg.KafkaEnabled() {
		t.Error("kafka should be disabled without brokers")
	}
	if cfg.MemoryMaxEntries != 100 || cfg.MemoryTTL != 24*time.Hour {
		t.Errorf("memory = %d/%s", cfg.MemoryMaxEntries, cfg.MemoryTTL)
	}
	if cfg.OpenAIModelScript != "gpt-4" || cfg.OpenAIModelTTS != "tts-1-hd" {
		t.Errorf("openai models = %q/%q", cfg.OpenAIModelScript, cfg.OpenAIModelTTS)
	}
	if cfg.ScriptTemperature != 0.7 || cfg.ScriptTopP != 0.9 {
		t.Errorf("sampling = %v/%v", cfg.ScriptTemperature, cfg.ScriptTopP)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MEMORY_MAX_ENTRIES", "7")
	t.Setenv("MEMORY_TTL", "90m")
	t.Setenv("STORAGE_BACKEND", "nats")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.MemoryMaxEntries != 7 || cfg.MemoryTTL != 90*time.Minute {
		t.Errorf("memory = %d/%s", cfg.MemoryMaxEntries, cfg.MemoryTTL)
	}
	if cfg.StorageBackend != "nats" {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	os.Unsetenv("AUDIO_OUTPUT_DIR")
	t.Cleanup(func() { os.Unsetenv("AUDIO_OUTPUT_DIR") })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AUDIO_OUTPUT_DIR=/tmp/from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AudioOutputDir != "/tmp/from-dotenv" {
		t.Errorf("AudioOutputDir = %q", cfg.AudioOutputDir)
	}
}

func TestLoad_TOMLOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "podcasts.toml")
	body := `
[server]
http_addr = ":9000"

[storage]
backend = "s3"
max_age = "2h"

[providers]
text = "gemini"
script_model = "gemini-pro-custom"
temperature = 0.3

[memory]
max_entries = 12
ttl = "30m"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.StorageBackend != "s3" || cfg.AudioMaxAge != 2*time.Hour {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.TextProvider != "gemini" || cfg.GeminiModelScript != "gemini-pro-custom" {
		t.Errorf("providers = %q/%q", cfg.TextProvider, cfg.GeminiModelScript)
	}
	if cfg.OpenAIModelScript != "gpt-4" {
		t.Errorf("openai script model changed: %q", cfg.OpenAIModelScript)
	}
	if cfg.ScriptTemperature != 0.3 {
		t.Errorf("ScriptTemperature = %v", cfg.ScriptTemperature)
	}
	if cfg.MemoryMaxEntries != 12 || cfg.MemoryTTL != 30*time.Minute {
		t.Errorf("memory = %d/%s", cfg.MemoryMaxEntries, cfg.MemoryTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageBackend:    "filesystem",
			TextProvider:      "openai",
			SpeechProvider:    "openai",
			AudioFormat:       "mp3",
			MemoryMaxEntries:  10,
			MemoryTTL:         time.Hour,
			ScriptTemperature: 0.7,
			ScriptTopP:        0.9,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad backend", func(c *Config) { c.StorageBackend = "ftp" }, true},
		{"bad text provider", func(c *Config) { c.TextProvider = "llama" }, true},
		{"bad format", func(c *Config) { c.AudioFormat = "ogg" }, true},
		{"gemini needs wav", func(c *Config) { c.SpeechProvider = "gemini" }, true},
		{"gemini wav", func(c *Config) { c.SpeechProvider = "gemini"; c.AudioFormat = "wav" }, false},
		{"zero entries", func(c *Config) { c.MemoryMaxEntries = 0 }, true},
		{"zero ttl", func(c *Config) { c.MemoryTTL = 0 }, true},
		{"top_p too high", func(c *Config) { c.ScriptTopP = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
