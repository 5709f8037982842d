package main

import (
	"context"

	"github.com/rs/zerolog"

	"rtscorrect/internal/config"
	"rtscorrect/internal/correction"
	"rtscorrect/internal/history"
	"rtscorrect/internal/httpapi"
	"rtscorrect/internal/llm"
	"rtscorrect/internal/manager"
	"rtscorrect/internal/registry"
	"rtscorrect/pkg/types"
)

// app owns the long-lived components built from one Config.
type app struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  *correction.Service
	hist *history.Store
}

// newApp wires the service. backend nil selects the build's native backend.
func newApp(cfg config.Config, log zerolog.Logger, backend llm.Backend) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if cfg.HistoryDB != "" {
		st, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.hist = st
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Backend:       backend,
		MaxQueueDepth: cfg.Queue.MaxDepth,
		MaxWait:       cfg.Queue.MaxWait.Std(),
		Logger:        &log,
	})
	var rec correction.Recorder
	if a.hist != nil {
		rec = a.hist
	}
	a.svc = correction.New(correction.Config{Manager: mgr, History: rec, Logger: &log})
	a.svc.Configure(settingsFrom(cfg))
	return a, nil
}

// Close releases the model, cache and history journal.
func (a *app) Close() { a.svc.Shutdown() }

func settingsFrom(cfg config.Config) correction.Settings {
	l := cfg.LLM
	st := correction.Settings{
		Enabled:     l.Enabled,
		ModelPath:   l.ModelPath,
		ModelsDir:   l.ModelsDir,
		Threads:     l.Threads,
		ContextSize: l.ContextSize,
		BatchSize:   l.BatchSize,
		MaxTokens:   l.MaxTokens,
		Sampler: llm.SamplerParams{
			Temperature: l.Temperature,
			TopK:        l.TopK,
			TopP:        l.TopP,
			Seed:        l.Seed,
		},
		SystemPromptFile: l.SystemPromptFile,
		Timeout:          l.Timeout.Std(),
	}
	if cfg.Cache.Enabled {
		st.CacheTTL = cfg.Cache.TTL.Std()
		st.CacheCapacity = cfg.Cache.Capacity
	}
	return st
}

// apiService adapts the correction service to httpapi.Service.
type apiService struct {
	*correction.Service
	modelsDir string
	hist      *history.Store
}

var _ httpapi.Service = apiService{}

func (a *app) api() apiService {
	return apiService{Service: a.svc, modelsDir: a.cfg.LLM.ModelsDir, hist: a.hist}
}

func (s apiService) ListModels() ([]types.Model, error) {
	if s.modelsDir == "" {
		return nil, nil
	}
	return registry.LoadDir(s.modelsDir)
}

func (s apiService) RecentHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if s.hist == nil {
		return nil, httpapi.ErrHistoryDisabled
	}
	entries, err := s.hist.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.HistoryEntry{
			ID:          e.ID,
			Input:       e.Input,
			Output:      e.Output,
			Applied:     e.Applied,
			Reason:      e.Reason,
			Stop:        e.Stop,
			Generated:   e.Generated,
			DurationMS:  e.DurationMS,
			CreatedUnix: e.CreatedAt.Unix(),
		})
	}
	return out, nil
}
