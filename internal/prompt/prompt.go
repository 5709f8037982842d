// Package prompt assembles the correction prompt fed to the model.
package prompt

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"rtscorrect/internal/common/fsutil"
)

// DefaultSystemPrompt frames the model as a transcript proofreader.
const DefaultSystemPrompt = "あなたは音声認識の書き起こしテキストを校正するアシスタントです。"

// DefaultInstructions is the correction instruction block. The input text
// follows it directly.
const DefaultInstructions = `以下のテキストを修正してください。

制約事項:
- 意味を変えないでください
- 誤字脱字のみ修正してください
- 句読点を補完してください
- フィラー言葉（「えー」「あのー」など）を削除してください
- 要約や追加説明は禁止です
- 修正後のテキストのみ出力してください

テキスト:`

// AnswerCue ends the prompt; the model continues after it.
const AnswerCue = "修正後:"

// Build concatenates the prompt parts. An empty system prompt omits its block.
func Build(systemPrompt, instructions, input string) string {
	var b strings.Builder
	b.Grow(len(systemPrompt) + len(instructions) + len(input) + len(AnswerCue) + 3)
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(instructions)
	b.WriteString(input)
	b.WriteString("\n")
	b.WriteString(AnswerCue)
	return b.String()
}

// LoadSystemPrompt reads an override file and trims surrounding whitespace.
func LoadSystemPrompt(path string) (string, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", errors.New("system prompt file is empty: " + p)
	}
	return s, nil
}

// Resolve returns the override file content, or DefaultSystemPrompt when no
// path is set or the file cannot be used. Failures are logged, never returned.
func Resolve(path string, log zerolog.Logger) string {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt
	}
	s, err := LoadSystemPrompt(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("system prompt override unavailable; using default")
		return DefaultSystemPrompt
	}
	log.Debug().Str("path", path).Int("bytes", len(s)).Msg("system prompt loaded")
	return s
}
