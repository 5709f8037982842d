package generate

import (
	"context"
	"strings"

	"rtscorrect/internal/llm"
)

// MaxGeneratedTokens is the hard upper bound on tokens produced per request.
const MaxGeneratedTokens = 2048

// StopReason says why a generation ended.
type StopReason string

const (
	EndOfSequence    StopReason = "eos"
	MaxTokensReached StopReason = "max_tokens"
	InvalidToken     StopReason = "invalid_token"
	DecodeFailure    StopReason = "decode_failure"
	Canceled         StopReason = "canceled"
)

// Result is the outcome of one generation.
type Result struct {
	Text         string
	PromptTokens int
	Generated    int
	DecodeCalls  int
	// Fallbacks counts steps where the sampler produced nothing and greedy
	// argmax was used instead.
	Fallbacks int
	Stop      StopReason
}

// Session is the set of handles one generation runs against.
type Session struct {
	Model   llm.Model
	Context llm.Context
	Sampler llm.Sampler
}

// Options bound a generation.
type Options struct {
	// MaxTokens lowers MaxGeneratedTokens; <= 0 or larger values use the cap.
	MaxTokens int
	// BatchSize is the maximum decode width for the prompt.
	BatchSize int
	// ContextSize, when > 0, bounds prompt plus generated tokens.
	ContextSize int
	Seq         llm.SeqID
}

func (o Options) limit() int {
	if o.MaxTokens <= 0 || o.MaxTokens > MaxGeneratedTokens {
		return MaxGeneratedTokens
	}
	return o.MaxTokens
}

// Run primes the context with prompt and generates until EOS, an invalid
// token, the token limit, a decode failure or ctx cancellation. The context
// cache must be empty. The returned Result is populated even when err != nil.
func Run(ctx context.Context, s Session, prompt []llm.Token, opts Options) (res Result, err error) {
	res.PromptTokens = len(prompt)
	var buf []byte
	defer func() {
		if r := recover(); r != nil {
			res.Stop = DecodeFailure
			err = ErrDecodePanic(r)
		}
		res.Text = strings.ToValidUTF8(string(buf), "")
	}()

	if len(prompt) == 0 {
		return res, ErrTokenizationFailed("empty prompt")
	}
	limit := opts.limit()
	if opts.ContextSize > 0 {
		room := opts.ContextSize - len(prompt)
		if room <= 0 {
			return res, ErrPromptTooLong(len(prompt), opts.ContextSize)
		}
		limit = min(limit, room)
	}

	for _, b := range Chunk(prompt, opts.BatchSize, opts.Seq) {
		if cerr := ctx.Err(); cerr != nil {
			res.Stop = Canceled
			return res, ErrGenerationTimedOut(cerr)
		}
		res.DecodeCalls++
		if st := s.Context.Decode(b); st != 0 {
			res.Stop = DecodeFailure
			return res, ErrDecodeFailure(st)
		}
	}

	vocab := s.Model.VocabSize()
	eos := s.Model.EOS()
	for {
		if cerr := ctx.Err(); cerr != nil {
			res.Stop = Canceled
			return res, ErrGenerationTimedOut(cerr)
		}
		tok, ok := s.Sampler.Sample()
		if !ok {
			tok = Greedy(s.Context.Logits())
			res.Fallbacks++
		}
		if tok < 0 || int(tok) >= vocab {
			res.Stop = InvalidToken
			return res, ErrInvalidToken(tok, vocab)
		}
		if tok == eos {
			res.Stop = EndOfSequence
			return res, nil
		}
		buf = append(buf, s.Model.Detokenize([]llm.Token{tok})...)
		pos := llm.Pos(len(prompt) + res.Generated)
		res.Generated++
		if res.Generated >= limit {
			res.Stop = MaxTokensReached
			return res, nil
		}
		b := llm.NewBatch(1)
		b.Add(tok, pos, opts.Seq, true)
		res.DecodeCalls++
		if st := s.Context.Decode(b); st != 0 {
			res.Stop = DecodeFailure
			return res, ErrDecodeFailure(st)
		}
	}
}

// Greedy returns the index of the highest logit, or -1 for an empty vector.
func Greedy(logits []float32) llm.Token {
	best := -1
	for i, v := range logits {
		if best < 0 || v > logits[best] {
			best = i
		}
	}
	return llm.Token(best)
}
