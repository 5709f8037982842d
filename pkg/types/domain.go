package types

// Model is a GGUF model file discovered on disk.
type Model struct {
	// Stable identifier derived from the file name.
	// example: qwen2.5-1.5b-instruct-q4_k_m
	ID string `json:"id" example:"qwen2.5-1.5b-instruct-q4_k_m"`
	// Human-friendly name.
	// example: Qwen2.5 1.5B Instruct (Q4_K_M)
	Name string `json:"name" example:"Qwen2.5 1.5B Instruct (Q4_K_M)"`
	// Absolute path to the model file.
	// example: /home/user/models/qwen2.5-1.5b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/qwen2.5-1.5b-instruct-q4_k_m.gguf"`
	// Quantization variant parsed from the file name.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// File size in bytes.
	// example: 986000000
	SizeBytes int64 `json:"size_bytes" example:"986000000"`
}
