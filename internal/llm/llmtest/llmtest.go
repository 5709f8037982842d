// Package llmtest provides a scripted, in-memory llm.Backend for tests.
//
// The vocabulary is byte-level: token ids 0..255 are the raw bytes, EOS is 256
// and the vocabulary size is 257 unless overridden. Tokenize turns every byte
// of the text into one token, so multi-byte UTF-8 characters span several
// tokens just like with a real BPE vocabulary.
package llmtest

import (
	"errors"
	"fmt"
	"sync"

	"rtscorrect/internal/llm"
)

// Default vocabulary layout.
const (
	DefaultVocabSize = 257
	DefaultEOS       = llm.Token(256)
)

// Backend is a scripted backend. Zero value is usable: the sampler replies
// with Reply byte by byte and then EOS.
type Backend struct {
	// Failure injection.
	LoadErr    error
	ContextErr error
	SamplerErr error
	FreeErr    error // returned by Model.Free and Context.Free

	// Reply is emitted byte by byte by the default sampler, followed by EOS.
	Reply string
	// Sample overrides the sampler. step is the index of the token being generated.
	Sample func(step int) (llm.Token, bool)
	// Logits overrides the logits for a step. Default: one-hot on the Reply token.
	Logits func(step int) []float32
	// DecodeStatus returns a non-zero status to simulate a decode failure.
	// call counts Decode calls since the last cache clear.
	DecodeStatus func(call int, b llm.Batch) int32
	// DecodeHook runs at the start of every Decode (e.g. to block a generation).
	DecodeHook func(call int)
	// LoadHook runs at the start of LoadModel (e.g. to hold initialization).
	LoadHook func(path string)
	// TokenizeAlwaysShort makes every Tokenize call report missing capacity.
	TokenizeAlwaysShort bool

	VocabSize int
	EOS       llm.Token

	mu        sync.Mutex
	events    []string
	decodes   []llm.Batch
	caps      []int
	posErrs   []string
	refs      int
	loadCount int
}

func (b *Backend) record(ev string) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Events returns the ordered lifecycle log: backend_init, model_load,
// context_new, sampler_new, sampler_free, context_free, model_free, backend_free.
func (b *Backend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

// Decodes returns a copy of every batch submitted since creation.
func (b *Backend) Decodes() []llm.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]llm.Batch(nil), b.decodes...)
}

// TokenizeCapacities returns the capacity passed to each Tokenize call.
func (b *Backend) TokenizeCapacities() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.caps...)
}

// PositionErrors lists cursor discontinuities observed by Decode.
func (b *Backend) PositionErrors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.posErrs...)
}

// Loads counts successful LoadModel calls.
func (b *Backend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadCount
}

// Refs is the number of outstanding Init calls.
func (b *Backend) Refs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

func (b *Backend) vocab() int {
	if b.VocabSize > 0 {
		return b.VocabSize
	}
	return DefaultVocabSize
}

func (b *Backend) eos() llm.Token {
	if b.VocabSize > 0 || b.EOS != 0 {
		return b.EOS
	}
	return DefaultEOS
}

// Init implements llm.Backend.
func (b *Backend) Init() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
	b.record("backend_init")
}

// Free implements llm.Backend.
func (b *Backend) Free() {
	b.mu.Lock()
	if b.refs > 0 {
		b.refs--
	}
	b.mu.Unlock()
	b.record("backend_free")
}

// LoadModel implements llm.Backend.
func (b *Backend) LoadModel(path string, params llm.ModelParams) (llm.Model, error) {
	if b.LoadHook != nil {
		b.LoadHook(path)
	}
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	if path == "" {
		return nil, errors.New("empty model path")
	}
	b.mu.Lock()
	b.loadCount++
	b.mu.Unlock()
	b.record("model_load")
	return &Model{b: b, path: path}, nil
}

// Model is the scripted model.
type Model struct {
	b     *Backend
	path  string
	freed bool
}

// VocabSize implements llm.Model.
func (m *Model) VocabSize() int { return m.b.vocab() }

// EOS implements llm.Model.
func (m *Model) EOS() llm.Token { return m.b.eos() }

// Tokenize implements llm.Model.
func (m *Model) Tokenize(text string, capacity int) llm.TokenizeResult {
	m.b.mu.Lock()
	m.b.caps = append(m.b.caps, capacity)
	m.b.mu.Unlock()
	if m.b.TokenizeAlwaysShort {
		return llm.NeedsCapacity(capacity + 1)
	}
	if len(text) > capacity {
		return llm.NeedsCapacity(len(text))
	}
	return llm.Tokenized(Encode(text))
}

// Detokenize implements llm.Model.
func (m *Model) Detokenize(tokens []llm.Token) []byte {
	out := make([]byte, 0, len(tokens))
	for _, t := range tokens {
		if t >= 0 && t < 256 {
			out = append(out, byte(t))
		}
	}
	return out
}

// NewContext implements llm.Model.
func (m *Model) NewContext(params llm.ContextParams) (llm.Context, error) {
	if m.freed {
		return nil, errors.New("model freed")
	}
	if m.b.ContextErr != nil {
		return nil, m.b.ContextErr
	}
	m.b.record("context_new")
	return &Context{b: m.b, m: m, size: params.ContextSize}, nil
}

// Free implements llm.Model.
func (m *Model) Free() error {
	if m.freed {
		panic("llmtest: model freed twice")
	}
	m.freed = true
	m.b.record("model_free")
	return m.b.FreeErr
}

// Context is the scripted inference session.
type Context struct {
	b      *Backend
	m      *Model
	size   int
	cursor int
	calls  int
	primed bool
	step   int
	freed  bool
}

// Decode implements llm.Context.
func (c *Context) Decode(batch llm.Batch) int32 {
	if c.freed {
		panic("llmtest: decode on freed context")
	}
	call := c.calls
	c.calls++
	if c.b.DecodeHook != nil {
		c.b.DecodeHook(call)
	}
	cp := llm.Batch{
		Tokens: append([]llm.Token(nil), batch.Tokens...),
		Pos:    append([]llm.Pos(nil), batch.Pos...),
		Seq:    append([]llm.SeqID(nil), batch.Seq...),
		Output: append([]bool(nil), batch.Output...),
	}
	c.b.mu.Lock()
	c.b.decodes = append(c.b.decodes, cp)
	c.b.mu.Unlock()
	if c.b.DecodeStatus != nil {
		if st := c.b.DecodeStatus(call, cp); st != 0 {
			return st
		}
	}
	for _, p := range batch.Pos {
		if int(p) != c.cursor {
			c.b.mu.Lock()
			c.b.posErrs = append(c.b.posErrs, fmt.Sprintf("call %d: pos %d, cursor %d", call, p, c.cursor))
			c.b.mu.Unlock()
		}
		c.cursor = int(p) + 1
	}
	if c.size > 0 && c.cursor > c.size {
		return 1
	}
	if batch.Len() > 0 && batch.Output[batch.Len()-1] {
		if c.primed {
			c.step++
		}
		c.primed = true
	}
	return 0
}

func (c *Context) replyToken(step int) llm.Token {
	if step < len(c.b.Reply) {
		return llm.Token(c.b.Reply[step])
	}
	return c.b.eos()
}

// Logits implements llm.Context.
func (c *Context) Logits() []float32 {
	if c.b.Logits != nil {
		return c.b.Logits(c.step)
	}
	out := make([]float32, c.b.vocab())
	if t := int(c.replyToken(c.step)); t >= 0 && t < len(out) {
		out[t] = 1
	}
	return out
}

// ClearCache implements llm.Context.
func (c *Context) ClearCache() {
	c.cursor = 0
	c.calls = 0
	c.primed = false
	c.step = 0
}

// Cursor is the next position the context expects.
func (c *Context) Cursor() int { return c.cursor }

// NewSampler implements llm.Context.
func (c *Context) NewSampler(seq llm.SeqID, params llm.SamplerParams) (llm.Sampler, error) {
	if c.b.SamplerErr != nil {
		return nil, c.b.SamplerErr
	}
	c.b.record("sampler_new")
	return &Sampler{c: c}, nil
}

// Free implements llm.Context.
func (c *Context) Free() error {
	if c.freed {
		panic("llmtest: context freed twice")
	}
	c.freed = true
	c.b.record("context_free")
	return c.b.FreeErr
}

// Sampler is the scripted sampler.
type Sampler struct {
	c     *Context
	freed bool
}

// Sample implements llm.Sampler.
func (s *Sampler) Sample() (llm.Token, bool) {
	if s.freed {
		panic("llmtest: sample on freed sampler")
	}
	if s.c.b.Sample != nil {
		return s.c.b.Sample(s.c.step)
	}
	return s.c.replyToken(s.c.step), true
}

// Free implements llm.Sampler.
func (s *Sampler) Free() error {
	if s.freed {
		panic("llmtest: sampler freed twice")
	}
	s.freed = true
	s.c.b.record("sampler_free")
	return nil
}

// Encode is the byte-level tokenization used by the scripted model.
func Encode(text string) []llm.Token {
	out := make([]llm.Token, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = llm.Token(text[i])
	}
	return out
}
