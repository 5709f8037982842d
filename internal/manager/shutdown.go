package manager

import "time"

// Shutdown waits for the in-flight generation, then releases the sampler,
// context, model and backend global in that order. It is a no-op when nothing
// is held and safe to call repeatedly. Release failures are logged and
// returned joined; the state is uninitialized afterwards regardless.
func (m *Manager) Shutdown() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.shutdownLocked()
}

// shutdownLocked drains and releases; callers hold initMu.
func (m *Manager) shutdownLocked() error {
	m.mu.Lock()
	res := m.res
	if res == nil {
		if m.state == StateFailed {
			m.state = StateUninitialized
		}
		m.mu.Unlock()
		return nil
	}
	// Reject new work while draining.
	m.state = StateUninitialized
	m.mu.Unlock()
	m.publish("shutdown_start", nil)

	m.genCh <- struct{}{}
	m.mu.Lock()
	m.res = nil
	m.readySince = time.Time{}
	m.mu.Unlock()
	err := res.release(m.log)
	<-m.genCh

	m.publish("shutdown_done", map[string]any{"error": errString(err)})
	m.log.Info().Err(err).Msg("shutdown complete")
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
