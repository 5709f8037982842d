// Package correction is the caller-facing surface: Configure, CorrectText and
// Shutdown. Every failure is absorbed and the input text returned unchanged.
package correction

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"rtscorrect/internal/generate"
	"rtscorrect/internal/history"
	"rtscorrect/internal/manager"
	"rtscorrect/internal/prompt"
	"rtscorrect/internal/registry"
	"rtscorrect/pkg/types"
)

// Pass-through reasons reported in Outcome.Reason.
const (
	ReasonDisabled    = "disabled"
	ReasonNotReady    = "not_ready"
	ReasonEmptyInput  = "empty_input"
	ReasonEmptyOutput = "empty_output"
	ReasonTimeout     = "timeout"
	ReasonBusy        = "busy"
	ReasonError       = "error"
)

// Recorder journals outcomes. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
	Close() error
}

// Outcome describes one CorrectText call.
type Outcome struct {
	RequestID string
	Input     string
	Text      string
	Applied   bool
	Reason    string
	Cached    bool
	Duration  time.Duration
	Result    generate.Result
	Err       error
}

// Config wires the service to its collaborators.
type Config struct {
	Manager *manager.Manager
	// History is optional.
	History Recorder
	Logger  *zerolog.Logger
}

// Service serializes correction requests onto one Manager.
type Service struct {
	mgr     *manager.Manager
	history Recorder
	log     zerolog.Logger
	group   singleflight.Group

	// initSerial runs background initializations one at a time.
	initSerial sync.Mutex

	flightMu  sync.Mutex
	flights   map[string]*flight
	flightSeq uint64

	mu       sync.RWMutex
	settings Settings
	enabled  bool
	system   string
	instr    string
	cache    *ttlcache.Cache[string, string]
	initDone chan struct{}
	initWG   sync.WaitGroup
	initSeq  uint64
	closed   bool
}

// flight is one shared generation for identical input. Its context is
// detached from every caller and canceled once the last waiter leaves.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New constructs a Service. A nil Manager gets a default one.
func New(cfg Config) *Service {
	s := &Service{
		mgr:     cfg.Manager,
		history: cfg.History,
		log:     zerolog.Nop(),
		system:  prompt.DefaultSystemPrompt,
		instr:   prompt.DefaultInstructions,
		flights: make(map[string]*flight),
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "correction").Logger()
	}
	if s.mgr == nil {
		s.mgr = manager.NewWithConfig(manager.ManagerConfig{Logger: cfg.Logger})
	}
	done := make(chan struct{})
	close(done)
	s.initDone = done
	return s
}

// Manager exposes the underlying lifecycle manager.
func (s *Service) Manager() *manager.Manager { return s.mgr }

// Configure records settings and, when enabled with a model, starts
// initialization in the background. It never fails; problems are logged and
// leave the service in pass-through mode. Initializations run in order and
// a pending one is skipped once a later Configure arrives, so the last
// call decides which model ends up loaded.
func (s *Service) Configure(st Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn().Msg("configure after shutdown ignored")
		return
	}
	s.initSeq++
	seq := s.initSeq
	s.settings = st
	s.enabled = st.Enabled
	s.instr = prompt.DefaultInstructions
	if st.Instructions != "" {
		s.instr = st.Instructions
	}
	s.resetCache(st)

	if !st.Enabled {
		s.log.Info().Msg("correction disabled")
		return
	}
	if st.ModelPath == "" && st.ModelsDir == "" {
		s.log.Warn().Msg("correction enabled without a model; passing text through")
		return
	}
	s.system = prompt.Resolve(st.SystemPromptFile, s.log)
	path, err := registry.Resolve(st.ModelPath, st.ModelsDir)
	if err != nil {
		initTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("model", st.ModelPath).Str("models_dir", st.ModelsDir).Msg("model not found; passing text through")
		return
	}

	params := st.initParams(path)
	done := make(chan struct{})
	s.initDone = done
	s.initWG.Add(1)
	go func() {
		defer s.initWG.Done()
		defer close(done)
		s.initSerial.Lock()
		defer s.initSerial.Unlock()
		if s.superseded(seq) {
			s.log.Debug().Str("model", params.ModelPath).Msg("initialization superseded")
			return
		}
		s.initialize(params)
	}()
}

// superseded reports whether a later Configure replaced seq.
func (s *Service) superseded(seq uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return seq != s.initSeq
}

func (s *Service) initialize(p manager.InitParams) {
	if err := s.mgr.Reinitialize(context.Background(), p); err != nil {
		initTotal.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("model", p.ModelPath).Msg("LLM initialization failed; passing text through")
		return
	}
	initTotal.WithLabelValues("ready").Inc()
	s.log.Info().Str("model", p.ModelPath).Msg("LLM initialized")
}

// resetCache replaces the result cache; callers hold s.mu.
func (s *Service) resetCache(st Settings) {
	if s.cache != nil {
		s.cache.Stop()
		s.cache = nil
	}
	if st.CacheTTL <= 0 {
		return
	}
	opts := []ttlcache.Option[string, string]{
		ttlcache.WithTTL[string, string](st.CacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	}
	if st.CacheCapacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, string](st.CacheCapacity))
	}
	c := ttlcache.New[string, string](opts...)
	go c.Start()
	s.cache = c
}

// WaitInitialized blocks until the most recent background initialization
// finished or ctx is done, then reports readiness.
func (s *Service) WaitInitialized(ctx context.Context) bool {
	s.mu.RLock()
	done := s.initDone
	s.mu.RUnlock()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.Ready()
}

// Ready reports whether CorrectText will reach the model.
func (s *Service) Ready() bool {
	s.mu.RLock()
	enabled := s.enabled && !s.closed
	s.mu.RUnlock()
	return enabled && s.mgr.Ready()
}

// Enabled reports the configured enabled flag.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled && !s.closed
}

// CorrectText returns the corrected text, or text unchanged when correction
// is disabled, not ready, or fails for any reason.
func (s *Service) CorrectText(ctx context.Context, text string) string {
	return s.Correct(ctx, text).Text
}

// Correct is CorrectText with details about what happened.
func (s *Service) Correct(ctx context.Context, text string) (out Outcome) {
	start := time.Now()
	out = Outcome{RequestID: uuid.NewString(), Input: text, Text: text}
	log := s.log.With().Str("request_id", out.RequestID).Logger()
	defer func() {
		out.Duration = time.Since(start)
		s.observe(ctx, out, log)
	}()

	s.mu.RLock()
	enabled := s.enabled && !s.closed
	st := s.settings
	system, instr, cache := s.system, s.instr, s.cache
	s.mu.RUnlock()

	switch {
	case !enabled:
		out.Reason = ReasonDisabled
		return out
	case strings.TrimSpace(text) == "":
		out.Reason = ReasonEmptyInput
		return out
	case !s.mgr.Ready():
		out.Reason = ReasonNotReady
		return out
	}

	if cache != nil {
		if item := cache.Get(text); item != nil {
			out.Text, out.Applied, out.Cached = item.Value(), true, true
			return out
		}
	}

	f := s.join(ctx, text)
	defer s.leave(text, f)
	ch := s.group.DoChan(f.key, func() (any, error) {
		defer s.finish(text, f)
		gctx := f.ctx
		if st.Timeout > 0 {
			var cancel context.CancelFunc
			gctx, cancel = context.WithTimeout(gctx, st.Timeout)
			defer cancel()
		}
		return s.mgr.Generate(gctx, prompt.Build(system, instr, text))
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		out.Err = generate.ErrGenerationTimedOut(ctx.Err())
		out.Reason = ReasonTimeout
		return out
	}
	res, _ := r.Val.(generate.Result)
	out.Result = res
	if r.Shared {
		log.Debug().Msg("coalesced with identical in-flight request")
	}
	if r.Err != nil {
		out.Err = r.Err
		out.Reason = reasonFor(r.Err)
		return out
	}

	corrected := Sanitize(res.Text, "")
	if corrected == "" {
		out.Reason = ReasonEmptyOutput
		return out
	}
	out.Text, out.Applied = corrected, true
	if cache != nil {
		cache.Set(text, corrected, ttlcache.DefaultTTL)
	}
	return out
}

// join registers a waiter on the live flight for text, starting a new one
// when none is running or the last one was abandoned.
func (s *Service) join(ctx context.Context, text string) *flight {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f := s.flights[text]
	if f == nil || f.ctx.Err() != nil {
		s.flightSeq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{key: strconv.FormatUint(s.flightSeq, 10), ctx: fctx, cancel: cancel}
		s.flights[text] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter; the last one out cancels the generation.
func (s *Service) leave(text string, f *flight) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[text] == f {
		delete(s.flights, text)
	}
}

// finish retires f once its generation returned so later callers start fresh.
func (s *Service) finish(text string, f *flight) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if s.flights[text] == f {
		delete(s.flights, text)
	}
}

func reasonFor(err error) string {
	switch {
	case generate.IsGenerationTimedOut(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	case manager.IsTooBusy(err):
		return ReasonBusy
	case manager.IsNotInitialized(err):
		return ReasonNotReady
	default:
		return ReasonError
	}
}

func (s *Service) observe(ctx context.Context, out Outcome, log zerolog.Logger) {
	outcome := "applied"
	if !out.Applied {
		outcome = out.Reason
	}
	correctionsTotal.WithLabelValues(outcome).Inc()
	if out.Result.Stop != "" {
		stopReasons.WithLabelValues(string(out.Result.Stop)).Inc()
		generatedTokens.Add(float64(out.Result.Generated))
		correctionDuration.Observe(out.Duration.Seconds())
	}

	ev := log.Debug()
	if out.Err != nil {
		ev = log.Warn().Err(out.Err)
	}
	ev.Str("outcome", outcome).Bool("cached", out.Cached).Int("generated", out.Result.Generated).
		Dur("took", out.Duration).Msg("correction")

	if s.history == nil || out.Reason == ReasonDisabled || out.Reason == ReasonEmptyInput {
		return
	}
	e := history.Entry{
		ID:         out.RequestID,
		Input:      out.Input,
		Output:     out.Text,
		Applied:    out.Applied,
		Reason:     out.Reason,
		Stop:       string(out.Result.Stop),
		Generated:  out.Result.Generated,
		DurationMS: out.Duration.Milliseconds(),
	}
	if err := s.history.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Warn().Err(err).Msg("history record failed")
	}
}

// Status reports manager status plus the enabled flag.
func (s *Service) Status() types.StatusResponse {
	st := s.mgr.Status()
	st.Enabled = s.Enabled()
	return st
}

// Shutdown waits for pending initialization, releases the model and closes
// the cache and history. Safe to call repeatedly.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cache := s.cache
	s.cache = nil
	s.mu.Unlock()

	s.initWG.Wait()
	if err := s.mgr.Shutdown(); err != nil {
		s.log.Error().Err(err).Msg("release failures during shutdown")
	}
	if cache != nil {
		cache.Stop()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close history")
		}
	}
	s.log.Info().Msg("correction service shut down")
}
