package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.GenerationHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.GenerationModel)
	assert.Equal(t, 1024, cfg.MaxTokens)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.GenerationHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithGenerationHost("http://generate:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://generate:9090/v1", cfg.GenerationHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOllama),
			WithEmbeddingModel("all-minilm"),
			WithGenerationModel("llama3.2"),
			WithAPIKey("secret"),
			WithTemperature(0.2),
			WithMaxTokens(256),
		)

		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
		assert.Equal(t, "llama3.2", cfg.GenerationModel)
		assert.Equal(t, "secret", cfg.APIKey)
		assert.Equal(t, 0.2, cfg.Temperature)
		assert.Equal(t, 256, cfg.MaxTokens)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		expected string
	}{
		{name: "openai already has /v1", provider: ProviderOpenAI, host: "http://localhost:11434/v1", expected: "http://localhost:11434/v1"},
		{name: "openai missing /v1", provider: ProviderOpenAI, host: "http://localhost:11434", expected: "http://localhost:11434/v1"},
		{name: "openai trailing slash", provider: ProviderOpenAI, host: "http://localhost:11434/", expected: "http://localhost:11434/v1"},
		{name: "ollama strips /v1", provider: ProviderOllama, host: "http://localhost:11434/v1", expected: "http://localhost:11434"},
		{name: "ollama plain host", provider: ProviderOllama, host: "http://localhost:11434/", expected: "http://localhost:11434"},
		{name: "empty host", provider: ProviderOpenAI, host: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, EmbeddingHost: tt.host, GenerationHost: tt.host}
			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.GenerationHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Provider:        "OpenAI",
			EmbeddingHost:   "http://localhost:11434",
			GenerationHost:  "http://localhost:11434",
			EmbeddingModel:  "embeddinggemma",
			GenerationModel: "qwen2.5:3b",
			MaxTokens:       512,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())

		// Should also normalize
		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "none", cfg.APIKey)
	})

	t.Run("mock needs nothing else", func(t *testing.T) {
		cfg := &Config{Provider: ProviderMock}
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "bedrock" }, field: "Provider"},
		{name: "missing embedding host", mutate: func(c *Config) { c.EmbeddingHost = "" }, field: "EmbeddingHost"},
		{name: "missing generation host", mutate: func(c *Config) { c.GenerationHost = "" }, field: "GenerationHost"},
		{name: "missing embedding model", mutate: func(c *Config) { c.EmbeddingModel = "" }, field: "EmbeddingModel"},
		{name: "missing generation model", mutate: func(c *Config) { c.GenerationModel = "" }, field: "GenerationModel"},
		{name: "temperature too high", mutate: func(c *Config) { c.Temperature = 3 }, field: "Temperature"},
		{name: "max tokens zero", mutate: func(c *Config) { c.MaxTokens = 0 }, field: "MaxTokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBuildAnswerMessages(t *testing.T) {
	system, user := BuildAnswerMessages("  [Source: v1 rows 0-3]\nstate: Jharkhand  ", "  How many died?  ")

	assert.Contains(t, system, "[Source: v1 rows 0-3]\nstate: Jharkhand")
	assert.Contains(t, system, NotAvailableAnswer)
	assert.Equal(t, "How many died?", user)
}

func TestConfigValidate_Integration(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	require.NoError(t, cfg.Validate())
}
