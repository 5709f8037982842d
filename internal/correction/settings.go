package correction

import (
	"time"

	"rtscorrect/internal/llm"
	"rtscorrect/internal/manager"
)

// Settings is one configuration of the correction service.
type Settings struct {
	Enabled bool
	// ModelPath is a GGUF file, a directory, or a model id inside ModelsDir.
	ModelPath   string
	ModelsDir   string
	Threads     int
	ContextSize int
	BatchSize   int
	MaxTokens   int
	Sampler     llm.SamplerParams
	// SystemPromptFile overrides prompt.DefaultSystemPrompt.
	SystemPromptFile string
	// Instructions overrides prompt.DefaultInstructions when non-empty.
	Instructions string
	// Timeout bounds a single CorrectText call; 0 disables it.
	Timeout time.Duration
	// CacheTTL enables the result cache when > 0.
	CacheTTL      time.Duration
	CacheCapacity uint64
}

func (s Settings) initParams(modelPath string) manager.InitParams {
	return manager.InitParams{
		ModelPath:   modelPath,
		Threads:     s.Threads,
		ContextSize: s.ContextSize,
		BatchSize:   s.BatchSize,
		MaxTokens:   s.MaxTokens,
		Sampler:     s.Sampler,
	}
}
