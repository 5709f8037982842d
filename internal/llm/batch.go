package llm

// Batch is one decode call worth of tokens. Entries are stored column-wise,
// matching the backend's batch layout.
type Batch struct {
	Tokens []Token
	Pos    []Pos
	Seq    []SeqID
	Output []bool
}

// NewBatch allocates an empty batch with room for n entries.
func NewBatch(n int) Batch {
	return Batch{
		Tokens: make([]Token, 0, n),
		Pos:    make([]Pos, 0, n),
		Seq:    make([]SeqID, 0, n),
		Output: make([]bool, 0, n),
	}
}

// Add appends one entry.
func (b *Batch) Add(tok Token, pos Pos, seq SeqID, output bool) {
	b.Tokens = append(b.Tokens, tok)
	b.Pos = append(b.Pos, pos)
	b.Seq = append(b.Seq, seq)
	b.Output = append(b.Output, output)
}

// Len is the number of entries.
func (b Batch) Len() int { return len(b.Tokens) }

// Outputs counts entries whose logits are requested.
func (b Batch) Outputs() int {
	n := 0
	for _, o := range b.Output {
		if o {
			n++
		}
	}
	return n
}
