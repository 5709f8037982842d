package types

// CorrectRequest is the body of POST /correct.
type CorrectRequest struct {
	// Final utterance produced by speech-to-text.
	// example: えーと今日は天気がいいですね
	Text string `json:"text" example:"えーと今日は天気がいいですね"`
}

// CorrectResponse is returned by POST /correct. Corrected equals Text when no
// correction was applied.
type CorrectResponse struct {
	// Request id used in logs and history.
	// example: 5f0c6a8e-2b7c-4c1e-9a51-2f0d7c3b9e11
	RequestID string `json:"request_id" example:"5f0c6a8e-2b7c-4c1e-9a51-2f0d7c3b9e11"`
	// Input text, unchanged.
	Text string `json:"text" example:"えーと今日は天気がいいですね"`
	// Corrected text.
	// example: 今日は天気がいいですね。
	Corrected string `json:"corrected" example:"今日は天気がいいですね。"`
	// Whether the model produced the correction (false means pass-through).
	// example: true
	Applied bool `json:"applied" example:"true"`
	// Why the text was passed through, when Applied is false.
	// example: not_ready
	Reason string `json:"reason,omitempty" example:"not_ready"`
	// True when served from the result cache.
	Cached bool `json:"cached,omitempty"`
	// Wall time in milliseconds.
	// example: 420
	DurationMS int64 `json:"duration_ms" example:"420"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Lifecycle state: uninitialized, initializing, ready or failed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Whether correction is enabled in the service configuration.
	// example: true
	Enabled bool `json:"enabled" example:"true"`
	// Model file currently loaded or being loaded.
	ModelPath string `json:"model_path,omitempty"`
	// Vocabulary size of the loaded model.
	// example: 151936
	VocabSize int `json:"vocab_size,omitempty" example:"151936"`
	// Context window in tokens.
	// example: 2048
	ContextSize int `json:"context_size,omitempty" example:"2048"`
	// Requests waiting for the generation slot.
	QueueLen int `json:"queue_len"`
	// Generations currently running (0 or 1).
	Inflight int `json:"inflight"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Generations started since process start.
	RequestsTotal uint64 `json:"requests_total"`
	// Generations that ended with an error.
	FailuresTotal uint64 `json:"failures_total"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// HistoryEntry is one journaled correction returned by GET /history.
type HistoryEntry struct {
	// example: 5f0c6a8e-2b7c-4c1e-9a51-2f0d7c3b9e11
	ID     string `json:"id" example:"5f0c6a8e-2b7c-4c1e-9a51-2f0d7c3b9e11"`
	Input  string `json:"input"`
	Output string `json:"output"`
	// example: true
	Applied bool `json:"applied" example:"true"`
	// example: timeout
	Reason string `json:"reason,omitempty" example:"timeout"`
	// Why generation stopped: eos, max_tokens, invalid_token, decode_failure or canceled.
	// example: eos
	Stop string `json:"stop,omitempty" example:"eos"`
	// Tokens generated.
	// example: 18
	Generated  int   `json:"generated" example:"18"`
	DurationMS int64 `json:"duration_ms"`
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
}

// HistoryResponse wraps GET /history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
