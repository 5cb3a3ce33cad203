package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"port"`
	LogMode string `mapstructure:"log_mode"`

	MaxUploadSizeMB int `mapstructure:"max_upload_size_mb"`

	LLM        LLMConfig        `mapstructure:"llm"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// LLMConfig selects the generator provider once at process start. "openai"
// also covers OpenAI-compatible local servers through base_url.
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	OpenAIAPIKey   string `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey   string `mapstructure:"GEMINI_API_KEY"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type ChunkingConfig struct {
	PagesPerChunk int `mapstructure:"pages_per_chunk"`
	OverlapPages  int `mapstructure:"overlap_pages"`
}

type ProcessingConfig struct {
	MaxConcurrentJobs int64 `mapstructure:"max_concurrent_jobs"`
}

// StorageConfig picks the job/session registry backend. "memory" is the
// default; durability across restarts is out of scope either way.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	Database string `mapstructure:"database"`
	MongoURI string `mapstructure:"MONGODB_URI"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("max_upload_size_mb", 10)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("chunking.pages_per_chunk", 1)
	v.SetDefault("chunking.overlap_pages", 0)
	v.SetDefault("processing.max_concurrent_jobs", 5)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.database", "contract_analyzer")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.BindEnv("llm.OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("storage.MONGODB_URI", "MONGODB_URI")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// MaxUploadSizeBytes converts the configured megabyte cap.
func (c *Config) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}
