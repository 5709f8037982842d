package manager

import (
	"time"

	"rtscorrect/internal/llm"
)

// State is the lifecycle state of the manager.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// InitParams configures one initialization attempt.
type InitParams struct {
	ModelPath   string
	Threads     int
	ContextSize int
	// BatchSize is the maximum decode width; clamped to ContextSize.
	BatchSize int
	// MaxTokens lowers the generation cap; 0 keeps it.
	MaxTokens int
	// TokenCapacity is the initial tokenizer buffer.
	TokenCapacity int
	Model         llm.ModelParams
	// Sampler zero value selects llm.DefaultSamplerParams.
	Sampler llm.SamplerParams
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State      State
	ModelPath  string
	Err        string
	VocabSize  int
	ReadySince time.Time
}
