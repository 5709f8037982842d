package generate

import (
	"testing"

	"rtscorrect/internal/llm"
)

func seqTokens(n int) []llm.Token {
	out := make([]llm.Token, n)
	for i := range out {
		out[i] = llm.Token(i % 200)
	}
	return out
}

func TestChunkPositionsAndOutputFlag(t *testing.T) {
	cases := []struct{ n, w int }{
		{1, 512}, {7, 3}, {9, 3}, {512, 512}, {513, 512}, {1500, 512}, {10, 1},
	}
	for _, c := range cases {
		batches := Chunk(seqTokens(c.n), c.w, 0)
		want := (c.n + c.w - 1) / c.w
		if len(batches) != want {
			t.Fatalf("n=%d w=%d: want %d batches, got %d", c.n, c.w, want, len(batches))
		}
		next, outputs := 0, 0
		for bi, b := range batches {
			if b.Len() > c.w || b.Len() == 0 {
				t.Fatalf("n=%d w=%d: batch %d has %d entries", c.n, c.w, bi, b.Len())
			}
			for i := 0; i < b.Len(); i++ {
				if int(b.Pos[i]) != next {
					t.Fatalf("n=%d w=%d: batch %d entry %d pos %d, want %d", c.n, c.w, bi, i, b.Pos[i], next)
				}
				next++
			}
			outputs += b.Outputs()
		}
		if next != c.n {
			t.Fatalf("n=%d w=%d: covered %d positions", c.n, c.w, next)
		}
		if outputs != 1 {
			t.Fatalf("n=%d w=%d: want one output flag, got %d", c.n, c.w, outputs)
		}
		last := batches[len(batches)-1]
		if !last.Output[last.Len()-1] {
			t.Fatalf("n=%d w=%d: last token not flagged", c.n, c.w)
		}
	}
}

func TestChunkDefaultWidthAndEmpty(t *testing.T) {
	if got := Chunk(nil, 0, 0); len(got) != 0 {
		t.Fatalf("want no batches, got %d", len(got))
	}
	if got := Chunk(seqTokens(DefaultBatchSize+1), 0, 0); len(got) != 2 {
		t.Fatalf("want 2 batches with default width, got %d", len(got))
	}
}

func TestChunkSequenceID(t *testing.T) {
	for _, b := range Chunk(seqTokens(5), 2, 3) {
		for _, s := range b.Seq {
			if s != 3 {
				t.Fatalf("want seq 3, got %d", s)
			}
		}
	}
}
