package manager

import (
	"context"
	"time"

	"rtscorrect/internal/generate"
)

// Generate runs one prompt against the loaded model. Requests are serialized;
// the context cache is cleared first so every request starts at position 0.
func (m *Manager) Generate(ctx context.Context, prompt string) (generate.Result, error) {
	if !m.Ready() {
		return generate.Result{}, ErrNotInitialized(m.State())
	}
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return generate.Result{}, err
	}
	defer release()

	m.mu.RLock()
	res, p, st := m.res, m.params, m.state
	m.mu.RUnlock()
	if st != StateReady || res == nil {
		return generate.Result{}, ErrNotInitialized(st)
	}

	m.requests.Add(1)
	start := time.Now()
	out, err := run(ctx, res, p, prompt)
	fields := map[string]any{
		"stop":         string(out.Stop),
		"prompt_toks":  out.PromptTokens,
		"generated":    out.Generated,
		"decode_calls": out.DecodeCalls,
		"fallbacks":    out.Fallbacks,
		"ms":           time.Since(start).Milliseconds(),
	}
	if err != nil {
		m.failures.Add(1)
		m.mu.Lock()
		m.err = err.Error()
		m.mu.Unlock()
		fields["error"] = err.Error()
		m.log.Warn().Err(err).Str("stop", string(out.Stop)).Int("generated", out.Generated).Msg("generation failed")
	} else {
		m.log.Debug().Str("stop", string(out.Stop)).Int("generated", out.Generated).Dur("took", time.Since(start)).Msg("generation done")
	}
	m.publish("generate_done", fields)
	return out, err
}

func run(ctx context.Context, r *resources, p InitParams, prompt string) (out generate.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			out.Stop = generate.DecodeFailure
			err = generate.ErrDecodePanic(v)
		}
	}()
	r.ctx.ClearCache()
	tokens, err := generate.Tokenize(r.model, prompt, p.TokenCapacity)
	if err != nil {
		return out, err
	}
	return generate.Run(ctx, generate.Session{Model: r.model, Context: r.ctx, Sampler: r.sampler}, tokens, generate.Options{
		MaxTokens:   p.MaxTokens,
		BatchSize:   p.BatchSize,
		ContextSize: p.ContextSize,
	})
}
