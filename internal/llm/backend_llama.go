//go:build llama

package llm

/*
#include <stdlib.h>
#include <llama.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// Built reports whether this binary carries the native llama backend.
const Built = true

const pieceBufSize = 64

type llamaBackend struct {
	mu   sync.Mutex
	refs int
}

// NewLlamaBackend returns the cgo llama.cpp backend.
func NewLlamaBackend() Backend { return &llamaBackend{} }

func (b *llamaBackend) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs == 0 {
		C.llama_backend_init()
	}
	b.refs++
}

func (b *llamaBackend) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 {
		C.llama_backend_free()
	}
}

func (b *llamaBackend) LoadModel(path string, params ModelParams) (Model, error) {
	if path == "" {
		return nil, errors.New("model path is empty")
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	mp := C.llama_model_default_params()
	mp.n_gpu_layers = 0
	mp.use_mmap = C.bool(params.UseMmap)
	mp.use_mlock = C.bool(params.UseMlock)
	m := C.llama_model_load_from_file(cpath, mp)
	if m == nil {
		return nil, fmt.Errorf("llama_model_load_from_file failed: %s", path)
	}
	vocab := C.llama_model_get_vocab(m)
	return &llamaModel{
		m:      m,
		vocab:  vocab,
		nVocab: int(C.llama_vocab_n_tokens(vocab)),
	}, nil
}

type llamaModel struct {
	m      *C.struct_llama_model
	vocab  *C.struct_llama_vocab
	nVocab int
}

func (m *llamaModel) VocabSize() int { return m.nVocab }

func (m *llamaModel) EOS() Token { return Token(C.llama_vocab_eos(m.vocab)) }

func (m *llamaModel) Tokenize(text string, capacity int) TokenizeResult {
	if capacity <= 0 {
		capacity = 1
	}
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	buf := make([]C.llama_token, capacity)
	n := int32(C.llama_tokenize(m.vocab, ctext, C.int32_t(len(text)),
		&buf[0], C.int32_t(capacity), C.bool(true), C.bool(false)))
	runtime.KeepAlive(buf)
	if n < 0 {
		return NeedsCapacity(int(-n))
	}
	out := make([]Token, n)
	for i := range out {
		out[i] = Token(buf[i])
	}
	return Tokenized(out)
}

func (m *llamaModel) Detokenize(tokens []Token) []byte {
	var out []byte
	buf := make([]byte, pieceBufSize)
	for _, t := range tokens {
		n := C.llama_token_to_piece(m.vocab, C.llama_token(t),
			(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(false))
		if n < 0 {
			buf = make([]byte, -n)
			n = C.llama_token_to_piece(m.vocab, C.llama_token(t),
				(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(false))
		}
		if n > 0 {
			out = append(out, buf[:n]...)
		}
	}
	return out
}

func (m *llamaModel) NewContext(params ContextParams) (Context, error) {
	if m.m == nil {
		return nil, errors.New("model is freed")
	}
	cp := C.llama_context_default_params()
	if params.ContextSize > 0 {
		cp.n_ctx = C.uint32_t(params.ContextSize)
	}
	if params.BatchSize > 0 {
		cp.n_batch = C.uint32_t(params.BatchSize)
		cp.n_ubatch = C.uint32_t(params.BatchSize)
	}
	if params.Threads > 0 {
		cp.n_threads = C.int32_t(params.Threads)
		cp.n_threads_batch = C.int32_t(params.Threads)
	}
	cp.n_seq_max = 1
	ctx := C.llama_init_from_model(m.m, cp)
	if ctx == nil {
		return nil, errors.New("llama_init_from_model failed")
	}
	return &llamaContext{ctx: ctx, nVocab: m.nVocab}, nil
}

func (m *llamaModel) Free() error {
	if m.m != nil {
		C.llama_model_free(m.m)
		m.m = nil
		m.vocab = nil
	}
	return nil
}

type llamaContext struct {
	ctx    *C.struct_llama_context
	nVocab int
}

func (c *llamaContext) Decode(b Batch) int32 {
	n := b.Len()
	if n == 0 {
		return 0
	}
	if c.ctx == nil {
		return -1
	}
	cb := C.llama_batch_init(C.int32_t(n), 0, 1)
	defer C.llama_batch_free(cb)

	toks := unsafe.Slice(cb.token, n)
	pos := unsafe.Slice(cb.pos, n)
	nSeq := unsafe.Slice(cb.n_seq_id, n)
	seqs := unsafe.Slice(cb.seq_id, n)
	logits := unsafe.Slice(cb.logits, n)
	for i := 0; i < n; i++ {
		toks[i] = C.llama_token(b.Tokens[i])
		pos[i] = C.llama_pos(b.Pos[i])
		nSeq[i] = 1
		*seqs[i] = C.llama_seq_id(b.Seq[i])
		if b.Output[i] {
			logits[i] = 1
		} else {
			logits[i] = 0
		}
	}
	cb.n_tokens = C.int32_t(n)
	return int32(C.llama_decode(c.ctx, cb))
}

func (c *llamaContext) Logits() []float32 {
	if c.ctx == nil {
		return nil
	}
	p := C.llama_get_logits_ith(c.ctx, -1)
	if p == nil {
		return nil
	}
	raw := unsafe.Slice((*float32)(unsafe.Pointer(p)), c.nVocab)
	out := make([]float32, len(raw))
	copy(out, raw)
	return out
}

func (c *llamaContext) ClearCache() {
	if c.ctx == nil {
		return
	}
	C.llama_memory_clear(C.llama_get_memory(c.ctx), C.bool(true))
}

func (c *llamaContext) NewSampler(seq SeqID, params SamplerParams) (Sampler, error) {
	if c.ctx == nil {
		return nil, errors.New("context is freed")
	}
	chain := C.llama_sampler_chain_init(C.llama_sampler_chain_default_params())
	if chain == nil {
		return nil, errors.New("llama_sampler_chain_init failed")
	}
	// top-k -> top-p -> temperature -> dist, or greedy when temperature is 0.
	if params.TopK > 0 {
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_k(C.int32_t(params.TopK)))
	}
	if params.TopP > 0 && params.TopP < 1 {
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_top_p(C.float(params.TopP), 1))
	}
	if params.Temperature > 0 {
		seed := C.uint32_t(C.LLAMA_DEFAULT_SEED)
		if params.Seed != 0 {
			seed = C.uint32_t(params.Seed)
		}
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_temp(C.float(params.Temperature)))
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_dist(seed))
	} else {
		C.llama_sampler_chain_add(chain, C.llama_sampler_init_greedy())
	}
	return &llamaSampler{s: chain, ctx: c, seq: seq}, nil
}

func (c *llamaContext) Free() error {
	if c.ctx != nil {
		C.llama_free(c.ctx)
		c.ctx = nil
	}
	return nil
}

type llamaSampler struct {
	s   *C.struct_llama_sampler
	ctx *llamaContext
	seq SeqID
}

func (s *llamaSampler) Sample() (Token, bool) {
	if s.s == nil || s.ctx.ctx == nil {
		return 0, false
	}
	t := C.llama_sampler_sample(s.s, s.ctx.ctx, -1)
	if t == C.LLAMA_TOKEN_NULL {
		return 0, false
	}
	return Token(t), true
}

func (s *llamaSampler) Free() error {
	if s.s != nil {
		C.llama_sampler_free(s.s)
		s.s = nil
	}
	return nil
}
