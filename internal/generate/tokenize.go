package generate

import (
	"fmt"

	"rtscorrect/internal/llm"
)

// DefaultTokenCapacity is the initial tokenizer buffer.
const DefaultTokenCapacity = 4096

// Tokenizer is the part of llm.Model needed to turn text into tokens.
type Tokenizer interface {
	Tokenize(text string, capacity int) llm.TokenizeResult
}

// Tokenize converts text into tokens. When the first call reports that more
// capacity is needed it retries exactly once with the reported size.
func Tokenize(tok Tokenizer, text string, capacity int) ([]llm.Token, error) {
	if capacity <= 0 {
		capacity = DefaultTokenCapacity
	}
	res := tok.Tokenize(text, capacity)
	tokens, ok := res.Tokens()
	if !ok {
		need := res.Required()
		res = tok.Tokenize(text, need)
		if tokens, ok = res.Tokens(); !ok {
			return nil, ErrTokenizationFailed(fmt.Sprintf("retry with capacity %d still short: %s", need, res))
		}
	}
	if len(tokens) == 0 {
		return nil, ErrTokenizationFailed("no tokens")
	}
	return tokens, nil
}
