package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider      string `yaml:"provider"` // "groq" or "ollama"
	GroqModel     string `yaml:"groq_model"`
	GroqBaseURL   string `yaml:"groq_base_url"`
	GroqAPIKeyEnv string `yaml:"groq_api_key_env"`
	OllamaModel   string `yaml:"ollama_model"`
	OllamaHost    string `yaml:"ollama_host"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// RemoteEmbedderConfig holds settings for an OpenAI/Ollama-compatible
// embeddings endpoint.
type RemoteEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type   string                `yaml:"type"` // "tfidf" or "remote"
	Remote *RemoteEmbedderConfig `yaml:"remote,omitempty"`
}

// Config is the root application configuration, constructed once at
// process start and passed into component constructors.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`

	PDFDirectory   string `yaml:"pdf_directory"`
	IndexDirectory string `yaml:"index_directory"`

	SearchK int `yaml:"search_k"`
}

// Load reads a config from the given path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "groq"
	}
	if cfg.LLM.GroqModel == "" {
		cfg.LLM.GroqModel = "llama-3.3-70b-versatile"
	}
	if cfg.LLM.GroqBaseURL == "" {
		cfg.LLM.GroqBaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.GroqAPIKeyEnv == "" {
		cfg.LLM.GroqAPIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.LLM.OllamaModel == "" {
		cfg.LLM.OllamaModel = "llama3.2:latest"
	}
	if cfg.LLM.OllamaHost == "" {
		cfg.LLM.OllamaHost = "http://localhost:11434"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "remote" {
		if cfg.Embedder.Remote == nil {
			cfg.Embedder.Remote = &RemoteEmbedderConfig{}
		}
		if cfg.Embedder.Remote.BaseURL == "" {
			cfg.Embedder.Remote.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.Remote.APIKeyEnv == "" {
			cfg.Embedder.Remote.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.Remote.Model == "" {
			cfg.Embedder.Remote.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.Remote.TimeoutSecs == 0 {
			cfg.Embedder.Remote.TimeoutSecs = 30
		}
	}
	if cfg.PDFDirectory == "" {
		cfg.PDFDirectory = "pdfs"
	}
	if cfg.IndexDirectory == "" {
		cfg.IndexDirectory = "index"
	}
	if cfg.SearchK == 0 {
		cfg.SearchK = 2
	}
}
