//go:build !llama

package llm

// This file provides a no-CGO stub backend. It is compiled when the 'llama'
// build tag is NOT set, keeping default builds and CI CGO-free. The real
// backend lives in backend_llama.go (tagged 'llama').

// Built reports whether this binary carries the native llama backend.
const Built = false

type stubBackend struct{}

// NewLlamaBackend returns a backend that refuses to load models in this build.
func NewLlamaBackend() Backend { return stubBackend{} }

func (stubBackend) Init() {}
func (stubBackend) Free() {}

func (stubBackend) LoadModel(path string, params ModelParams) (Model, error) {
	return nil, ErrNotBuilt
}
