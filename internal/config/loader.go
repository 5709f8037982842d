package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr         string      `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string      `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string      `json:"log_format" yaml:"log_format" toml:"log_format"`
	LLM          LLMConfig   `json:"llm" yaml:"llm" toml:"llm"`
	Cache        CacheConfig `json:"cache" yaml:"cache" toml:"cache"`
	HistoryDB    string      `json:"history_db" yaml:"history_db" toml:"history_db"`
	Queue        QueueConfig `json:"queue" yaml:"queue" toml:"queue"`
	CORS         CORSConfig  `json:"cors" yaml:"cors" toml:"cors"`
	MaxBodyBytes int64       `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// LLMConfig configures the on-device correction model.
type LLMConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	ModelPath        string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelsDir        string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Threads          int      `json:"threads" yaml:"threads" toml:"threads"`
	ContextSize      int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize        int      `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	MaxTokens        int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature      float32  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopK             int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP             float32  `json:"top_p" yaml:"top_p" toml:"top_p"`
	Seed             uint32   `json:"seed" yaml:"seed" toml:"seed"`
	SystemPromptFile string   `json:"system_prompt_file" yaml:"system_prompt_file" toml:"system_prompt_file"`
	Timeout          Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// CacheConfig configures the correction result cache.
type CacheConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	TTL      Duration `json:"ttl" yaml:"ttl" toml:"ttl"`
	Capacity uint64   `json:"capacity" yaml:"capacity" toml:"capacity"`
}

// QueueConfig bounds admission to the single generation slot.
type QueueConfig struct {
	MaxDepth int      `json:"max_depth" yaml:"max_depth" toml:"max_depth"`
	MaxWait  Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
}

// CORSConfig enables cross-origin access to the HTTP API.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
}

// Default values applied to unspecified fields.
const (
	DefaultAddr         = ":8080"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultThreads      = 4
	DefaultContextSize  = 2048
	DefaultBatchSize    = 512
	DefaultMaxTokens    = 512
	DefaultTopK         = 40
	DefaultQueueDepth   = 8
	DefaultCacheTTL     = 10 * time.Minute
	DefaultCacheCap     = 1024
	DefaultTimeout      = 30 * time.Second
	DefaultQueueWait    = 5 * time.Second
	DefaultMaxBodyBytes = 1 << 20
)

// Default returns a fully populated configuration with the LLM disabled.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	l := &c.LLM
	if l.Threads == 0 {
		l.Threads = DefaultThreads
	}
	if l.ContextSize == 0 {
		l.ContextSize = DefaultContextSize
	}
	if l.BatchSize == 0 {
		l.BatchSize = DefaultBatchSize
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = DefaultMaxTokens
	}
	if l.Temperature == 0 {
		l.Temperature = 0.8
	}
	if l.TopK == 0 {
		l.TopK = DefaultTopK
	}
	if l.TopP == 0 {
		l.TopP = 0.95
	}
	if l.Timeout == 0 {
		l.Timeout = Duration(DefaultTimeout)
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = DefaultCacheCap
	}
	if c.Queue.MaxDepth == 0 {
		c.Queue.MaxDepth = DefaultQueueDepth
	}
	if c.Queue.MaxWait == 0 {
		c.Queue.MaxWait = Duration(DefaultQueueWait)
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Validate reports every out-of-range field at once.
func (c Config) Validate() error {
	var errs []error
	if c.LLM.Threads < 0 {
		errs = append(errs, fmt.Errorf("llm.threads must be >= 0, got %d", c.LLM.Threads))
	}
	if c.LLM.ContextSize < 0 {
		errs = append(errs, fmt.Errorf("llm.context_size must be >= 0, got %d", c.LLM.ContextSize))
	}
	if c.LLM.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("llm.batch_size must be >= 0, got %d", c.LLM.BatchSize))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be >= 0, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Temperature < 0 {
		errs = append(errs, fmt.Errorf("llm.temperature must be >= 0, got %g", c.LLM.Temperature))
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		errs = append(errs, fmt.Errorf("llm.top_p must be in [0,1], got %g", c.LLM.TopP))
	}
	if c.LLM.Timeout < 0 || c.Cache.TTL < 0 || c.Queue.MaxWait < 0 {
		errs = append(errs, errors.New("durations must be >= 0"))
	}
	if c.Queue.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("queue.max_depth must be >= 0, got %d", c.Queue.MaxDepth))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
