package manager

import (
	"time"

	"github.com/rs/zerolog"

	"rtscorrect/internal/generate"
	"rtscorrect/internal/llm"
)

// Defaults applied when corresponding fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultThreads       = 4
	defaultContextSize   = 2048
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Backend defaults to llm.NewLlamaBackend().
	Backend       llm.Backend
	MaxQueueDepth int
	MaxWait       time.Duration
	Publisher     EventPublisher
	Logger        *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:     StateUninitialized,
		backend:   cfg.Backend,
		publisher: cfg.Publisher,
		log:       zerolog.Nop(),
		startTime: time.Now(),
	}
	if m.backend == nil {
		m.backend = llm.NewLlamaBackend()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	m.maxQueueDepth = cfg.MaxQueueDepth
	if m.maxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	}
	m.maxWait = cfg.MaxWait
	if m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, m.maxQueueDepth)
	return m
}

func (p InitParams) withDefaults() InitParams {
	if p.Threads <= 0 {
		p.Threads = defaultThreads
	}
	if p.ContextSize <= 0 {
		p.ContextSize = defaultContextSize
	}
	if p.BatchSize <= 0 {
		p.BatchSize = generate.DefaultBatchSize
	}
	if p.BatchSize > p.ContextSize {
		p.BatchSize = p.ContextSize
	}
	if p.TokenCapacity <= 0 {
		p.TokenCapacity = generate.DefaultTokenCapacity
	}
	if p.Model == (llm.ModelParams{}) {
		p.Model = llm.DefaultModelParams()
	}
	if p.Sampler == (llm.SamplerParams{}) {
		p.Sampler = llm.DefaultSamplerParams()
	}
	return p
}
