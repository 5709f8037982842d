package llm

import "fmt"

// Token is a vocabulary id.
type Token int32

// Pos is an absolute position in the attention cache.
type Pos int32

// SeqID identifies a sequence inside a context.
type SeqID int32

// ModelParams configures model loading.
type ModelParams struct {
	UseMmap  bool
	UseMlock bool
}

// DefaultModelParams mirrors llama.cpp defaults for CPU inference.
func DefaultModelParams() ModelParams { return ModelParams{UseMmap: true} }

// ContextParams configures an inference session.
type ContextParams struct {
	ContextSize int
	BatchSize   int
	Threads     int
}

// SamplerParams configures a sampler chain.
type SamplerParams struct {
	Temperature float32
	TopK        int
	TopP        float32
	// Seed for the distribution sampler; 0 picks a random seed.
	Seed uint32
}

// DefaultSamplerParams are the llama.cpp sampler defaults: top-k 40, top-p 0.95, temperature 0.8.
func DefaultSamplerParams() SamplerParams {
	return SamplerParams{Temperature: 0.8, TopK: 40, TopP: 0.95}
}

// TokenizeResult is the outcome of one tokenizer call: either the tokens, or
// the capacity the backend needs to hold them.
type TokenizeResult struct {
	tokens []Token
	need   int
}

// Tokenized wraps a successful tokenizer result.
func Tokenized(tokens []Token) TokenizeResult { return TokenizeResult{tokens: tokens} }

// NeedsCapacity reports that the buffer was too small and n slots are required.
func NeedsCapacity(n int) TokenizeResult { return TokenizeResult{need: n} }

// Tokens returns the tokens and true, or nil and false if more capacity is needed.
func (r TokenizeResult) Tokens() ([]Token, bool) {
	if r.need > 0 {
		return nil, false
	}
	return r.tokens, true
}

// Required returns the capacity requested by the backend (0 on success).
func (r TokenizeResult) Required() int { return r.need }

func (r TokenizeResult) String() string {
	if r.need > 0 {
		return fmt.Sprintf("needs_capacity(%d)", r.need)
	}
	return fmt.Sprintf("ok(%d)", len(r.tokens))
}
