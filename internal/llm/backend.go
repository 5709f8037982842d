// Package llm defines the contract between the correction core and the native
// inference backend (llama.cpp). The backend is a black box: it loads models,
// tokenizes, decodes batches, samples and detokenizes. Heavy lifting stays in
// native code; this package only carries handles and typed results across the
// boundary.
//
// Build tags:
//
//   - `llama`: links libllama through cgo (backend_llama.go, llama_cgo.go).
//   - default: a stub backend whose LoadModel always fails, keeping default
//     builds and CI CGO-free.
package llm

import "errors"

// ErrNotBuilt is returned by the stub backend for every model load.
var ErrNotBuilt = errors.New("llama support not built (missing 'llama' build tag)")

// Backend is the process-wide entry point of an inference runtime.
type Backend interface {
	// Init prepares backend-global state. Calls are reference counted by
	// implementations that need it; every Init must be paired with Free.
	Init()
	// Free releases backend-global state acquired by Init.
	Free()
	// LoadModel loads a model artifact from path.
	LoadModel(path string, params ModelParams) (Model, error)
}

// Model is an owned reference to a loaded model and its vocabulary.
type Model interface {
	// VocabSize is the number of distinct token ids the model produces.
	VocabSize() int
	// EOS is the end-of-sequence token id.
	EOS() Token
	// Tokenize converts text into at most capacity tokens.
	Tokenize(text string, capacity int) TokenizeResult
	// Detokenize renders tokens back into raw (possibly partial UTF-8) bytes.
	Detokenize(tokens []Token) []byte
	// NewContext creates an inference session bound to this model.
	NewContext(params ContextParams) (Context, error)
	// Free releases the model. It must not be called while a context is alive.
	Free() error
}

// Context is an inference session holding the attention cache.
type Context interface {
	// Decode submits one batch. Zero means success; anything else is a
	// backend-specific failure status.
	Decode(b Batch) int32
	// Logits returns the raw logits of the last output-flagged position.
	// The slice is only valid until the next Decode.
	Logits() []float32
	// ClearCache drops every cached position so the cursor restarts at 0.
	ClearCache()
	// NewSampler builds a sampler chain bound to this context and sequence.
	NewSampler(seq SeqID, params SamplerParams) (Sampler, error)
	// Free releases the context. It must not be called while a sampler is alive.
	Free() error
}

// Sampler turns the current logits into a token id.
type Sampler interface {
	// Sample returns the chosen token, or ok=false when the chain produced
	// nothing (the backend's null token).
	Sample() (tok Token, ok bool)
	Free() error
}
