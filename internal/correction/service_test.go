package correction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rtscorrect/internal/history"
	"rtscorrect/internal/llm"
	"rtscorrect/internal/llm/llmtest"
	"rtscorrect/internal/manager"
	"rtscorrect/internal/prompt"
)

func modelFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newService(t *testing.T, b *llmtest.Backend, rec Recorder) *Service {
	t.Helper()
	m := manager.NewWithConfig(manager.ManagerConfig{Backend: b, MaxWait: time.Second})
	s := New(Config{Manager: m, History: rec})
	t.Cleanup(s.Shutdown)
	return s
}

// readyService configures s with a placeholder model and waits for readiness.
func readyService(t *testing.T, s *Service, st Settings) {
	t.Helper()
	st.Enabled = true
	if st.ModelPath == "" {
		st.ModelPath = modelFile(t, "m.gguf")
	}
	s.Configure(st)
	if !s.WaitInitialized(testCtx(t)) {
		t.Fatalf("service not ready: %+v", s.Status())
	}
}

func TestCorrectTextBeforeConfigure(t *testing.T) {
	b := &llmtest.Backend{Reply: "changed"}
	s := newService(t, b, nil)
	if got := s.CorrectText(testCtx(t), "そのまま"); got != "そのまま" {
		t.Fatalf("got %q", got)
	}
	if out := s.Correct(testCtx(t), "x"); out.Reason != ReasonDisabled || out.Applied {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(b.Events()) != 0 {
		t.Fatalf("backend touched before configure: %v", b.Events())
	}
}

func TestConfigureDisabled(t *testing.T) {
	b := &llmtest.Backend{Reply: "changed"}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: false, ModelPath: modelFile(t, "m.gguf")})
	if s.WaitInitialized(testCtx(t)) {
		t.Fatalf("disabled service reported ready")
	}
	if got := s.CorrectText(testCtx(t), "abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if len(b.Events()) != 0 {
		t.Fatalf("disabled service loaded a model")
	}
}

func TestCorrectTextUsesModel(t *testing.T) {
	b := &llmtest.Backend{Reply: "  今日は晴れです。\n"}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})
	out := s.Correct(testCtx(t), "えー今日は晴れです")
	if out.Text != "今日は晴れです。" || !out.Applied || out.RequestID == "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	want := llmtest.Encode(prompt.Build(prompt.DefaultSystemPrompt, prompt.DefaultInstructions, "えー今日は晴れです"))
	var fed []llm.Token
	for _, d := range b.Decodes() {
		fed = append(fed, d.Tokens...)
		if len(fed) >= len(want) {
			break
		}
	}
	if string(tokensToBytes(fed[:len(want)])) != string(tokensToBytes(want)) {
		t.Fatalf("model was not fed the built prompt")
	}
}

func tokensToBytes(toks []llm.Token) []byte {
	out := make([]byte, len(toks))
	for i, t := range toks {
		out[i] = byte(t)
	}
	return out
}

func TestCorrectTextDuringInitializationPassesThrough(t *testing.T) {
	gate := make(chan struct{})
	b := &llmtest.Backend{Reply: "fixed", LoadHook: func(string) { <-gate }}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "m.gguf")})

	out := s.Correct(testCtx(t), "raw")
	if out.Text != "raw" || out.Reason != ReasonNotReady {
		t.Fatalf("want pass-through while initializing, got %+v", out)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.Manager().State() != manager.StateInitializing {
		if time.Now().After(deadline) {
			t.Fatalf("manager never entered initializing: %s", s.Manager().State())
		}
		time.Sleep(time.Millisecond)
	}
	if st := s.Status(); !st.Enabled || s.CorrectText(testCtx(t), "raw") != "raw" {
		t.Fatalf("unexpected status while initializing: %+v", st)
	}
	close(gate)
	if !s.WaitInitialized(testCtx(t)) {
		t.Fatalf("initialization did not complete")
	}
	if got := s.CorrectText(testCtx(t), "raw"); got != "fixed" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigureMissingModelPassesThrough(t *testing.T) {
	b := &llmtest.Backend{Reply: "fixed"}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: true, ModelPath: filepath.Join(t.TempDir(), "missing.gguf")})
	if s.WaitInitialized(testCtx(t)) {
		t.Fatalf("ready with a missing model")
	}
	if got := s.CorrectText(testCtx(t), "raw"); got != "raw" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigureModelLoadFailurePassesThrough(t *testing.T) {
	b := &llmtest.Backend{Reply: "fixed", LoadErr: errors.New("not a gguf file")}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "m.gguf")})
	if s.WaitInitialized(testCtx(t)) {
		t.Fatalf("ready after load failure")
	}
	if st := s.Manager().State(); st != manager.StateFailed {
		t.Fatalf("want failed state, got %s", st)
	}
	if got := s.CorrectText(testCtx(t), "raw"); got != "raw" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigureEnabledWithoutModel(t *testing.T) {
	s := newService(t, &llmtest.Backend{}, nil)
	s.Configure(Settings{Enabled: true})
	if s.WaitInitialized(testCtx(t)) {
		t.Fatalf("ready without a model")
	}
	if got := s.CorrectText(testCtx(t), "raw"); got != "raw" {
		t.Fatalf("got %q", got)
	}
}

func TestCorrectTextBlankInput(t *testing.T) {
	b := &llmtest.Backend{Reply: "x"}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})
	out := s.Correct(testCtx(t), "  \n")
	if out.Text != "  \n" || out.Reason != ReasonEmptyInput {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(b.Decodes()) != 0 {
		t.Fatalf("blank input reached the model")
	}
}

func TestCorrectTextEmptyOutputReturnsOriginal(t *testing.T) {
	b := &llmtest.Backend{Reply: " \n\x00 "}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})
	out := s.Correct(testCtx(t), "original")
	if out.Text != "original" || out.Applied || out.Reason != ReasonEmptyOutput {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestCorrectTextGenerationErrorReturnsOriginal(t *testing.T) {
	b := &llmtest.Backend{Reply: "fixed", DecodeStatus: func(int, llm.Batch) int32 { return 2 }}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})
	out := s.Correct(testCtx(t), "original")
	if out.Text != "original" || out.Reason != ReasonError || out.Err == nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !s.Ready() {
		t.Fatalf("a request failure must not change readiness")
	}
}

func TestCorrectTextTimeoutReturnsOriginal(t *testing.T) {
	b := &llmtest.Backend{
		Sample:     func(int) (llm.Token, bool) { return 'a', true },
		DecodeHook: func(int) { time.Sleep(2 * time.Millisecond) },
	}
	s := newService(t, b, nil)
	readyService(t, s, Settings{Timeout: 20 * time.Millisecond})
	out := s.Correct(testCtx(t), "original")
	if out.Text != "original" || out.Reason != ReasonTimeout {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestCorrectTextCache(t *testing.T) {
	b := &llmtest.Backend{Reply: "fixed"}
	s := newService(t, b, nil)
	readyService(t, s, Settings{CacheTTL: time.Minute, CacheCapacity: 8})
	first := s.Correct(testCtx(t), "raw")
	n := len(b.Decodes())
	second := s.Correct(testCtx(t), "raw")
	if first.Cached || !second.Cached || second.Text != "fixed" {
		t.Fatalf("unexpected outcomes: %+v %+v", first, second)
	}
	if len(b.Decodes()) != n {
		t.Fatalf("cache hit reached the model")
	}
}

func TestCorrectTextCoalescesIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	b := &llmtest.Backend{Reply: "fixed", DecodeHook: func(int) {
		once.Do(func() { <-release })
	}}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.CorrectText(testCtx(t), "same")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if results[0] != "fixed" || results[1] != "fixed" {
		t.Fatalf("unexpected results: %v", results)
	}
	if n := s.Manager().Status().RequestsTotal; n != 1 {
		t.Fatalf("want one generation for identical concurrent requests, got %d", n)
	}
}

func TestHistoryRecorded(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	b := &llmtest.Backend{Reply: "fixed"}
	s := newService(t, b, store)
	readyService(t, s, Settings{})
	out := s.Correct(testCtx(t), "raw")
	got, err := store.Recent(testCtx(t), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].ID != out.RequestID || got[0].Output != "fixed" || !got[0].Applied || got[0].Stop != "eos" {
		t.Fatalf("unexpected history: %+v", got)
	}
	s.Shutdown()
	if _, err := store.Recent(context.Background(), 1); err == nil {
		t.Fatalf("history should be closed by Shutdown")
	}
}

func TestSystemPromptAndInstructionsOverride(t *testing.T) {
	sys := filepath.Join(t.TempDir(), "sys.txt")
	if err := os.WriteFile(sys, []byte("SYS\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := &llmtest.Backend{Reply: "ok"}
	s := newService(t, b, nil)
	readyService(t, s, Settings{SystemPromptFile: sys, Instructions: "FIX:"})
	s.CorrectText(testCtx(t), "t")
	want := "SYS\n\nFIX:t\n" + prompt.AnswerCue
	if got := string(tokensToBytes(b.Decodes()[0].Tokens)); got != want {
		t.Fatalf("prompt %q, want %q", got, want)
	}
}

func TestConfigureSwitchesModel(t *testing.T) {
	b := &llmtest.Backend{Reply: "ok"}
	s := newService(t, b, nil)
	first := modelFile(t, "a.gguf")
	readyService(t, s, Settings{ModelPath: first})
	second := modelFile(t, "b.gguf")
	readyService(t, s, Settings{ModelPath: second})
	if got := s.Manager().Params().ModelPath; got != second {
		t.Fatalf("model path %q, want %q", got, second)
	}
	if b.Loads() != 2 || b.Refs() != 1 {
		t.Fatalf("loads=%d refs=%d", b.Loads(), b.Refs())
	}
}

func TestConfigureLastCallWins(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var loaded []string
	b := &llmtest.Backend{Reply: "ok", LoadHook: func(p string) {
		if filepath.Base(p) == "a.gguf" {
			<-gate
		}
		mu.Lock()
		loaded = append(loaded, filepath.Base(p))
		mu.Unlock()
	}}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "a.gguf")})
	deadline := time.Now().Add(2 * time.Second)
	for s.Manager().State() != manager.StateInitializing {
		if time.Now().After(deadline) {
			t.Fatalf("manager never entered initializing: %s", s.Manager().State())
		}
		time.Sleep(time.Millisecond)
	}
	s.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "b.gguf")})
	last := modelFile(t, "c.gguf")
	s.Configure(Settings{Enabled: true, ModelPath: last})
	close(gate)

	if !s.WaitInitialized(testCtx(t)) {
		t.Fatalf("service not ready: %+v", s.Status())
	}
	if got := s.Manager().Params().ModelPath; got != last {
		t.Fatalf("model path %q, want %q", got, last)
	}
	mu.Lock()
	defer mu.Unlock()
	if !equalStrings(loaded, []string{"a.gguf", "c.gguf"}) {
		t.Fatalf("superseded model should not load: %v", loaded)
	}
	if b.Refs() != 1 {
		t.Fatalf("refs=%d events=%v", b.Refs(), b.Events())
	}
}

func TestConfigureSameModelNewThreadsReloads(t *testing.T) {
	b := &llmtest.Backend{Reply: "ok"}
	s := newService(t, b, nil)
	path := modelFile(t, "m.gguf")
	readyService(t, s, Settings{ModelPath: path, Threads: 2})
	readyService(t, s, Settings{ModelPath: path, Threads: 2})
	if b.Loads() != 1 {
		t.Fatalf("identical settings reloaded: loads=%d", b.Loads())
	}
	readyService(t, s, Settings{ModelPath: path, Threads: 3})
	if got := s.Manager().Params().Threads; got != 3 || b.Loads() != 2 {
		t.Fatalf("threads=%d loads=%d", got, b.Loads())
	}
}

func TestCorrectCallerCancelKeepsSharedGeneration(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	b := &llmtest.Backend{Reply: "fixed", DecodeHook: func(int) {
		once.Do(func() { <-release })
	}}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})

	firstCtx, cancelFirst := context.WithCancel(testCtx(t))
	defer cancelFirst()
	first := make(chan Outcome, 1)
	go func() { first <- s.Correct(firstCtx, "same") }()
	waitWaiters(t, s, "same", 1)
	second := make(chan Outcome, 1)
	go func() { second <- s.Correct(testCtx(t), "same") }()
	waitWaiters(t, s, "same", 2)

	cancelFirst()
	out := <-first
	if out.Text != "same" || out.Reason != ReasonTimeout || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("canceled caller: %+v", out)
	}
	close(release)
	out = <-second
	if !out.Applied || out.Text != "fixed" {
		t.Fatalf("remaining caller should get the shared result: %+v", out)
	}
	if n := s.Manager().Status().RequestsTotal; n != 1 {
		t.Fatalf("want one generation, got %d", n)
	}
}

func TestCorrectLastCallerCancelStopsGeneration(t *testing.T) {
	b := &llmtest.Backend{
		Sample:     func(int) (llm.Token, bool) { return 'a', true },
		DecodeHook: func(int) { time.Sleep(10 * time.Millisecond) },
	}
	s := newService(t, b, nil)
	readyService(t, s, Settings{})
	ctx, cancel := context.WithTimeout(testCtx(t), 30*time.Millisecond)
	defer cancel()
	if out := s.Correct(ctx, "raw"); out.Reason != ReasonTimeout || out.Text != "raw" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	deadline := time.Now().Add(time.Second)
	for s.Manager().Status().Inflight != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("generation kept running after its only caller left")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitWaiters polls until n callers share the flight for text.
func waitWaiters(t *testing.T, s *Service, text string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.flightMu.Lock()
		f := s.flights[text]
		got := 0
		if f != nil {
			got = f.waiters
		}
		s.flightMu.Unlock()
		if got == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("want %d waiters on %q, got %d", n, text, got)
		}
		time.Sleep(time.Millisecond)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestShutdownIsIdempotent(t *testing.T) {
	b := &llmtest.Backend{Reply: "ok"}
	s := newService(t, b, nil)
	s.Shutdown()
	s.Shutdown()

	s2 := newService(t, b, nil)
	readyService(t, s2, Settings{})
	s2.Shutdown()
	s2.Shutdown()
	if b.Refs() != 0 {
		t.Fatalf("backend still held after shutdown")
	}
	if got := s2.CorrectText(testCtx(t), "raw"); got != "raw" {
		t.Fatalf("got %q after shutdown", got)
	}
	s2.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "m.gguf")})
	if s2.Ready() {
		t.Fatalf("configure after shutdown should be ignored")
	}
}

func TestShutdownWaitsForPendingInitialization(t *testing.T) {
	gate := make(chan struct{})
	b := &llmtest.Backend{LoadHook: func(string) { <-gate }}
	s := newService(t, b, nil)
	s.Configure(Settings{Enabled: true, ModelPath: modelFile(t, "m.gguf")})
	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("Shutdown returned before initialization finished")
	case <-time.After(30 * time.Millisecond):
	}
	close(gate)
	<-done
	if b.Refs() != 0 {
		t.Fatalf("resources leaked after shutdown: %v", b.Events())
	}
}

func TestReasonFor(t *testing.T) {
	cases := map[string]error{
		ReasonTimeout:  context.DeadlineExceeded,
		ReasonNotReady: manager.ErrNotInitialized(manager.StateFailed),
		ReasonError:    errors.New("x"),
	}
	for want, err := range cases {
		if got := reasonFor(err); got != want {
			t.Fatalf("reasonFor(%v) = %q, want %q", err, got, want)
		}
	}
}
