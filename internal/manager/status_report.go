package manager

import (
	"time"

	"rtscorrect/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, ModelPath: m.params.ModelPath, Err: m.err, ReadySince: m.readySince}
	if m.res != nil {
		s.VocabSize = m.res.vocab
	}
	return s
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(m.state),
		ModelPath:      m.params.ModelPath,
		ContextSize:    m.params.ContextSize,
		QueueLen:       len(m.queueCh),
		Inflight:       len(m.genCh),
		MaxQueueDepth:  cap(m.queueCh),
		RequestsTotal:  m.requests.Load(),
		FailuresTotal:  m.failures.Load(),
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if m.res != nil {
		resp.VocabSize = m.res.vocab
	}
	return resp
}
