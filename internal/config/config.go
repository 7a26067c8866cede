package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server Server
	Store  Store
	Cache  Cache
	Ingest Ingest
	Serve  Serve
	LLM    LLM
}

type Server struct {
	Host string
	Port int
}

type Store struct {
	URL        string
	APIKey     string
	Collection string
}

type Cache struct {
	Dir       string
	ChunkSize int
}

type Ingest struct {
	ChunkSize        int
	AvgDocLen        float64
	LlamaCloudAPIKey string
}

type Serve struct {
	RateLimitPerMinute int
	CORSOrigin         string
}

type LLM struct {
	OpenAIKey    string
	AnthropicKey string
	MaxRetries   int
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	cacheChunkSize, err := getEnvInt("CACHE_CHUNK_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_CHUNK_SIZE: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	avgdl, err := getEnvFloat("BM25_AVGDL", 5.75)
	if err != nil {
		return nil, fmt.Errorf("invalid BM25_AVGDL: %w", err)
	}

	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	cfg := &Config{
		Server: Server{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Store: Store{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("COLLECTION_NAME", ""),
		},
		Cache: Cache{
			Dir:       getEnv("CACHE_DIR", ""),
			ChunkSize: cacheChunkSize,
		},
		Ingest: Ingest{
			ChunkSize:        chunkSize,
			AvgDocLen:        avgdl,
			LlamaCloudAPIKey: getEnv("LLAMA_CLOUD_API_KEY", ""),
		},
		Serve: Serve{
			RateLimitPerMinute: rateLimit,
			CORSOrigin:         getEnv("CORS_ORIGIN", ""),
		},
		LLM: LLM{
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			MaxRetries:   maxRetries,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidateStore checks the settings both commands need.
func (c *Config) ValidateStore() error {
	var missing []string
	if c.Store.URL == "" {
		missing = append(missing, "QDRANT_URL")
	}
	if c.Store.Collection == "" {
		missing = append(missing, "COLLECTION_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateServe additionally requires a generation API key.
func (c *Config) ValidateServe() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" {
		return fmt.Errorf("missing required settings: OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
