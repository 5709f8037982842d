package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rtscorrect/internal/generate"
	"rtscorrect/internal/llm/llmtest"
)

func TestBeginGeneration_QueueTimeout(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Backend: &llmtest.Backend{}, MaxQueueDepth: 1, MaxWait: 20 * time.Millisecond})
	rel, err := m.beginGeneration(context.Background())
	if err != nil {
		t.Fatalf("beginGeneration first: %v", err)
	}
	defer rel()
	// depth=1 is taken by the first request
	if _, err = m.beginGeneration(context.Background()); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError, got %v", err)
	}
}

func TestBeginGeneration_GenTimeout(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Backend: &llmtest.Backend{}, MaxQueueDepth: 2, MaxWait: 20 * time.Millisecond})
	m.genCh <- struct{}{}
	if _, err := m.beginGeneration(context.Background()); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError on gen wait, got %v", err)
	}
	if len(m.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(m.queueCh))
	}
}

func TestBeginGeneration_CanceledContext(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Backend: &llmtest.Backend{}, MaxWait: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.beginGeneration(ctx); !generate.IsGenerationTimedOut(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("want generation timeout wrapping context.Canceled, got %v", err)
	}
}

func TestBeginGeneration_CanceledWhileQueued(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Backend: &llmtest.Backend{}, MaxQueueDepth: 2, MaxWait: time.Minute})
	m.genCh <- struct{}{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.beginGeneration(ctx)
	if !generate.IsGenerationTimedOut(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want generation timeout wrapping DeadlineExceeded, got %v", err)
	}
	if len(m.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(m.queueCh))
	}
}

func TestBeginGeneration_ReleaseFreesSlots(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Backend: &llmtest.Backend{}, MaxQueueDepth: 1, MaxWait: 20 * time.Millisecond})
	for i := 0; i < 3; i++ {
		rel, err := m.beginGeneration(context.Background())
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if st := m.Status(); st.Inflight != 1 || st.QueueLen != 1 {
			t.Fatalf("unexpected occupancy: %+v", st)
		}
		rel()
	}
}

func TestGenerateSerializesConcurrentRequests(t *testing.T) {
	var active atomic.Int32
	var overlap atomic.Bool
	b := &llmtest.Backend{Reply: "ok"}
	b.DecodeHook = func(int) {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	}
	m := readyManager(t, b)
	done := make(chan error, 6)
	for i := 0; i < 6; i++ {
		go func() {
			_, err := m.Generate(testCtx(t), "p")
			done <- err
		}()
	}
	for i := 0; i < 6; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if overlap.Load() {
		t.Fatalf("generations interleaved")
	}
	if pe := b.PositionErrors(); len(pe) != 0 {
		t.Fatalf("cursor shared across requests: %v", pe)
	}
}
