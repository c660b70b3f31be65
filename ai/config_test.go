package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:8000", cfg.InferenceHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ClassifierModel)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:8000", cfg.InferenceHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithInferenceHost("http://inference:8000"),
			WithEmbeddingHost("http://embed:8080/v1"),
		)

		assert.Equal(t, "http://inference:8000", cfg.InferenceHost)
		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithClassifierModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ClassifierModel)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name          string
		embeddingHost string
		want          string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"keeps existing v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"strips trailing slash before adding", "http://localhost:11434/", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithEmbeddingHost(tt.embeddingHost))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}

	t.Run("trims inference host trailing slash", func(t *testing.T) {
		cfg := NewConfig(WithInferenceHost("http://inference:8000/"))
		cfg.Normalize()
		assert.Equal(t, "http://inference:8000", cfg.InferenceHost)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing fields fail", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{"no inference host", func(c *Config) { c.InferenceHost = "" }},
			{"no embedding host", func(c *Config) { c.EmbeddingHost = "" }},
			{"no embedding model", func(c *Config) { c.EmbeddingModel = "" }},
			{"no classifier model", func(c *Config) { c.ClassifierModel = "" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := DefaultConfig()
				tt.mutate(cfg)
				assert.Error(t, cfg.Validate())
			})
		}
	})
}
