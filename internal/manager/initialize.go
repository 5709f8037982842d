package manager

import (
	"context"
	"time"
)

// Initialize loads the model and creates the context and sampler. It is
// idempotent: when the manager is already ready it returns nil without side
// effects. Concurrent calls serialize; from StateFailed a call is a fresh
// attempt.
func (m *Manager) Initialize(ctx context.Context, p InitParams) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.Ready() {
		return nil
	}
	return m.initializeLocked(ctx, p)
}

// Reinitialize makes the manager ready with exactly p. When it is already
// ready with the same parameters it returns nil; when the parameters differ
// the held resources are released first. The comparison and the switch
// happen under the same lock as Initialize and Shutdown.
func (m *Manager) Reinitialize(ctx context.Context, p InitParams) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.Ready() {
		cur := m.Params()
		if cur == p.withDefaults() {
			return nil
		}
		m.log.Info().Str("from", cur.ModelPath).Str("to", p.ModelPath).Msg("switching parameters")
		if err := m.shutdownLocked(); err != nil {
			m.log.Warn().Err(err).Msg("release during switch")
		}
	}
	return m.initializeLocked(ctx, p)
}

// initializeLocked acquires everything for p; callers hold initMu.
func (m *Manager) initializeLocked(ctx context.Context, p InitParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = p.withDefaults()

	m.mu.Lock()
	m.state = StateInitializing
	m.params = p
	m.err = ""
	m.mu.Unlock()
	m.publish("init_start", map[string]any{"threads": p.Threads, "context_size": p.ContextSize})
	m.log.Info().Str("model", p.ModelPath).Int("threads", p.Threads).Int("ctx", p.ContextSize).Msg("initializing")

	start := time.Now()
	res, err := acquire(m.backend, p, m.log)
	if err != nil {
		m.mu.Lock()
		m.state = StateFailed
		m.err = err.Error()
		m.mu.Unlock()
		m.publish("init_failed", map[string]any{"error": err.Error()})
		m.log.Error().Err(err).Str("model", p.ModelPath).Msg("initialization failed")
		return err
	}

	m.mu.Lock()
	m.res = res
	m.state = StateReady
	m.readySince = time.Now()
	m.mu.Unlock()
	m.publish("init_ready", map[string]any{"vocab_size": res.vocab, "load_ms": time.Since(start).Milliseconds()})
	m.log.Info().Str("model", p.ModelPath).Int("vocab", res.vocab).Dur("took", time.Since(start)).Msg("model ready")
	return nil
}
