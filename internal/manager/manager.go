package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"rtscorrect/internal/llm"
)

// Manager is the single-writer domain around one model, one context and one
// sampler. Construct it once and share the pointer.
type Manager struct {
	// initMu serializes Initialize and Shutdown.
	initMu sync.Mutex

	mu         sync.RWMutex
	state      State
	res        *resources
	params     InitParams
	err        string
	readySince time.Time

	backend   llm.Backend
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	// Queueing primitives
	genCh         chan struct{} // size 1: single in-flight generation
	queueCh       chan struct{} // buffered: queue slots
	maxQueueDepth int
	maxWait       time.Duration

	requests atomic.Uint64
	failures atomic.Uint64
}

// New constructs a Manager around backend with package defaults.
func New(backend llm.Backend) *Manager {
	return NewWithConfig(ManagerConfig{Backend: backend})
}

// SetEventPublisher replaces the event sink. Passing nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(name string, fields map[string]any) {
	m.mu.RLock()
	p := m.publisher
	path := m.params.ModelPath
	m.mu.RUnlock()
	p.Publish(Event{Name: name, ModelPath: path, Fields: fields})
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether generations can be served.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.res != nil
}

// Params returns the parameters of the current or last initialization.
func (m *Manager) Params() InitParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}
