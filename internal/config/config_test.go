package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 1024, cfg.Ingest.ChunkSize)
	assert.Equal(t, 1024, cfg.Cache.ChunkSize)
	assert.InDelta(t, 5.75, cfg.Ingest.AvgDocLen, 1e-9)
	assert.Equal(t, 100, cfg.Serve.RateLimitPerMinute)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("QDRANT_URL", "http://localhost:6334")
	t.Setenv("COLLECTION_NAME", "docs")
	t.Setenv("BM25_AVGDL", "12.5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "http://localhost:6334", cfg.Store.URL)
	assert.Equal(t, "docs", cfg.Store.Collection)
	assert.InDelta(t, 12.5, cfg.Ingest.AvgDocLen, 1e-9)
	assert.Equal(t, 5, cfg.Serve.RateLimitPerMinute)
	assert.Equal(t, "0.0.0.0:9001", cfg.Addr())
}

func TestLoad_RejectsMalformedPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidateStore_ReportsEverythingMissing(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QDRANT_URL")
	assert.Contains(t, err.Error(), "COLLECTION_NAME")
}

func TestValidateServe_NeedsGenerationKey(t *testing.T) {
	cfg := &Config{Store: Store{URL: "http://localhost:6334", Collection: "docs"}}
	err := cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.LLM.AnthropicKey = "sk-ant"
	assert.NoError(t, cfg.ValidateServe())
}
