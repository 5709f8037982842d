package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rtscorrect/internal/llm/llmtest"
)

// modelFile creates a small placeholder model file and returns its path.
func modelFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "model.gguf")
	writeModel(t, p)
	return p
}

func writeModel(t *testing.T, p string) {
	t.Helper()
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// readyManager returns an initialized manager over b and shuts it down on cleanup.
func readyManager(t *testing.T, b *llmtest.Backend) *Manager {
	t.Helper()
	m := NewWithConfig(ManagerConfig{Backend: b, MaxWait: time.Second})
	if err := m.Initialize(testCtx(t), InitParams{ModelPath: modelFile(t)}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
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
