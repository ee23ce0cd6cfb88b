// Package config loads the core's project configuration from .oracle.yaml,
// grounded on the teacher's internal/config package but trimmed to the
// fields this core actually consumes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WalkerConfig configures the Repository Walker (spec §4.2).
type WalkerConfig struct {
	MaxBytes        int64    `yaml:"max_bytes"`
	ExtraIgnoreDirs []string `yaml:"extra_ignore_dirs"`
}

// SearchConfig configures the Retriever's hybrid pipeline (spec §4.11).
type SearchConfig struct {
	BM25Limit   int `yaml:"bm25_limit"`
	VectorLimit int `yaml:"vector_limit"`
	FusionLimit int `yaml:"fusion_limit"`
	RRFConstant int `yaml:"rrf_k"`
}

// EmbeddingsConfig configures the Embedder (spec §4.6).
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider"` // "ollama" (default); the CLI always builds an Ollama embedder and does not read this field
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Endpoint   string `yaml:"endpoint"`
}

// RerankConfig configures the Reranker's mode selection (spec §4.9).
type RerankConfig struct {
	RemoteEndpoint  string `yaml:"remote_endpoint"`
	RemoteAPIKeyEnv string `yaml:"remote_api_key_env"`
	ONNXModelDir    string `yaml:"onnx_model_dir"`
}

// Config is the complete core configuration, unmarshaled from .oracle.yaml at
// the repository root. Absence of the file is not an error; defaults apply.
type Config struct {
	Version    int              `yaml:"version"`
	Walker     WalkerConfig     `yaml:"walker"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Rerank     RerankConfig     `yaml:"rerank"`
}

// Default returns the configuration defaults named throughout spec.md.
func Default() Config {
	return Config{
		Version: 1,
		Walker: WalkerConfig{
			MaxBytes: 500 * 1024,
		},
		Search: SearchConfig{
			BM25Limit:   200,
			VectorLimit: 100,
			FusionLimit: 30,
			RRFConstant: 60,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 384,
			Endpoint:   "http://localhost:11434",
		},
	}
}

// Load reads and merges .oracle.yaml at path over the defaults. A missing
// file returns defaults with no error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Walker.MaxBytes <= 0 {
		cfg.Walker.MaxBytes = Default().Walker.MaxBytes
	}
	if cfg.Search.BM25Limit <= 0 {
		cfg.Search.BM25Limit = Default().Search.BM25Limit
	}
	if cfg.Search.VectorLimit <= 0 {
		cfg.Search.VectorLimit = Default().Search.VectorLimit
	}
	if cfg.Search.FusionLimit <= 0 {
		cfg.Search.FusionLimit = Default().Search.FusionLimit
	}
	if cfg.Search.RRFConstant <= 0 {
		cfg.Search.RRFConstant = Default().Search.RRFConstant
	}
	if cfg.Embeddings.Dimensions <= 0 {
		cfg.Embeddings.Dimensions = Default().Embeddings.Dimensions
	}

	return cfg, nil
}
