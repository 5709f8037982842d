package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rtscorrect/internal/correction"
	"rtscorrect/internal/history"
	"rtscorrect/internal/httpapi"
	"rtscorrect/internal/llm"
	"rtscorrect/internal/manager"
	"rtscorrect/internal/registry"
	"rtscorrect/pkg/types"
)

// createTempModelsDir creates a temporary directory populated with placeholder
// .gguf files and returns its path.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// stack is the wired service plus its HTTP front.
type stack struct {
	svc  *correction.Service
	hist *history.Store
	srv  *httptest.Server
}

// apiAdapter exposes the correction service, registry and journal to httpapi.
type apiAdapter struct {
	*correction.Service
	dir  string
	hist *history.Store
}

func (a apiAdapter) ListModels() ([]types.Model, error) { return registry.LoadDir(a.dir) }

func (a apiAdapter) RecentHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if a.hist == nil {
		return nil, httpapi.ErrHistoryDisabled
	}
	entries, err := a.hist.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.HistoryEntry{ID: e.ID, Input: e.Input, Output: e.Output, Applied: e.Applied, Reason: e.Reason, Stop: e.Stop, Generated: e.Generated})
	}
	return out, nil
}

// newStack wires backend → manager → correction service → HTTP, configures it
// with st and waits for initialization to settle.
func newStack(t *testing.T, backend llm.Backend, mcfg manager.ManagerConfig, st correction.Settings) *stack {
	t.Helper()
	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	mcfg.Backend = backend
	svc := correction.New(correction.Config{Manager: manager.NewWithConfig(mcfg), History: hist})
	svc.Configure(st)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.WaitInitialized(ctx)

	srv := httptest.NewServer(httpapi.NewMux(apiAdapter{Service: svc, dir: st.ModelsDir, hist: hist}))
	t.Cleanup(func() {
		srv.Close()
		svc.Shutdown()
	})
	return &stack{svc: svc, hist: hist, srv: srv}
}

func postCorrect(t *testing.T, base, text string) (int, types.CorrectResponse) {
	t.Helper()
	body, _ := json.Marshal(types.CorrectRequest{Text: text})
	resp, err := http.Post(base+"/correct", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /correct: %v", err)
	}
	defer resp.Body.Close()
	var out types.CorrectResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
