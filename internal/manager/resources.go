package manager

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rtscorrect/internal/common/fsutil"
	"rtscorrect/internal/llm"
)

// resources holds the handles acquired by one successful initialization.
// Fields are cleared as they are released, so release runs each step at most
// once and a second call is a no-op.
type resources struct {
	backend llm.Backend // non-nil while the backend global is held
	model   llm.Model
	ctx     llm.Context
	sampler llm.Sampler
	vocab   int
}

// acquire runs backend init, model load, context and sampler creation. On
// failure everything acquired so far is released before returning.
func acquire(backend llm.Backend, p InitParams, log zerolog.Logger) (*resources, error) {
	path, err := fsutil.ExpandHome(p.ModelPath)
	if err != nil {
		return nil, ErrModelLoadFailed(p.ModelPath, err)
	}
	if err := fsutil.CheckReadableFile(path); err != nil {
		return nil, ErrModelLoadFailed(path, err)
	}

	r := &resources{}
	backend.Init()
	r.backend = backend

	model, err := backend.LoadModel(path, p.Model)
	if err != nil {
		r.release(log)
		return nil, ErrModelLoadFailed(path, err)
	}
	r.model = model
	r.vocab = model.VocabSize()

	ctx, err := model.NewContext(llm.ContextParams{
		ContextSize: p.ContextSize,
		BatchSize:   p.BatchSize,
		Threads:     p.Threads,
	})
	if err != nil {
		r.release(log)
		return nil, ErrContextCreationFailed(err)
	}
	r.ctx = ctx

	smp, err := ctx.NewSampler(0, p.Sampler)
	if err != nil {
		r.release(log)
		return nil, ErrSamplerCreationFailed(err)
	}
	r.sampler = smp
	return r, nil
}

// release frees sampler, context, model and the backend global in that order.
// Every step runs even when an earlier one fails; failures are logged and joined.
func (r *resources) release(log zerolog.Logger) error {
	if r == nil {
		return nil
	}
	var errs []error
	step := func(name string, free func() error) {
		defer func() {
			if v := recover(); v != nil {
				errs = append(errs, fmt.Errorf("free %s: panic: %v", name, v))
				log.Error().Str("handle", name).Interface("panic", v).Msg("release panicked")
			}
		}()
		if err := free(); err != nil {
			errs = append(errs, fmt.Errorf("free %s: %w", name, err))
			log.Error().Err(err).Str("handle", name).Msg("release failed")
		}
	}
	if s := r.sampler; s != nil {
		r.sampler = nil
		step("sampler", s.Free)
	}
	if c := r.ctx; c != nil {
		r.ctx = nil
		step("context", c.Free)
	}
	if m := r.model; m != nil {
		r.model = nil
		step("model", m.Free)
	}
	if b := r.backend; b != nil {
		r.backend = nil
		step("backend", func() error { b.Free(); return nil })
	}
	return errors.Join(errs...)
}
