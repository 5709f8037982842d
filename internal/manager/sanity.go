package manager

import (
	"rtscorrect/internal/common/fsutil"
	"rtscorrect/internal/llm"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	NativeBackend bool   `json:"native_backend"`
	ModelFound    bool   `json:"model_found"`
	ModelPath     string `json:"model_path,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck runs CheckModel against modelPath, or against the loaded
// model when modelPath is empty.
func (m *Manager) SanityCheck(modelPath string) SanityReport {
	if modelPath == "" {
		modelPath = m.Params().ModelPath
	}
	return CheckModel(modelPath)
}

// CheckModel reports whether the binary links llama.cpp and whether the
// model file is readable. It needs no Manager and touches no state.
func CheckModel(modelPath string) SanityReport {
	r := SanityReport{NativeBackend: llm.Built, ModelPath: modelPath}
	if modelPath == "" {
		r.Error = "no model configured"
		return r
	}
	p, err := fsutil.ExpandHome(modelPath)
	if err == nil {
		err = fsutil.CheckReadableFile(p)
	}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ModelFound = true
	if !r.NativeBackend {
		r.Error = llm.ErrNotBuilt.Error()
	}
	return r
}
