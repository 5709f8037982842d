package generate

import "rtscorrect/internal/llm"

// DefaultBatchSize is the maximum number of tokens per decode call.
const DefaultBatchSize = 512

// Chunk splits tokens into batches of at most width entries. Positions are
// absolute (entry i of the sequence has position i) and only the final token
// requests output.
func Chunk(tokens []llm.Token, width int, seq llm.SeqID) []llm.Batch {
	if width <= 0 {
		width = DefaultBatchSize
	}
	n := len(tokens)
	out := make([]llm.Batch, 0, (n+width-1)/width)
	for start := 0; start < n; start += width {
		end := min(start+width, n)
		b := llm.NewBatch(end - start)
		for i := start; i < end; i++ {
			b.Add(tokens[i], llm.Pos(i), seq, i == n-1)
		}
		out = append(out, b)
	}
	return out
}
