// Package pipeline connects a line-oriented utterance source (the
// speech-to-text process writing final utterances to stdout) to a Corrector.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// maxLineBytes bounds a single utterance.
const maxLineBytes = 1 << 20

// Corrector is the correction surface the pipeline needs.
type Corrector interface {
	CorrectText(ctx context.Context, text string) string
}

// Line is one emitted record in JSON mode.
type Line struct {
	Text      string `json:"text"`
	Corrected string `json:"corrected"`
}

type options struct {
	json bool
	log  zerolog.Logger
}

// Option configures Run.
type Option func(*options)

// WithJSON emits one JSON object per utterance instead of plain text.
func WithJSON() Option { return func(o *options) { o.json = true } }

// WithLogger sets the logger used for per-utterance debug output.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// Run reads utterances line by line from r and writes one corrected line per
// non-empty utterance to w. It returns when r is exhausted, ctx is done, or a
// read/write fails.
func Run(ctx context.Context, r io.Reader, w io.Writer, c Corrector, opts ...Option) error {
	o := options{log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		n++
		out := c.CorrectText(ctx, text)
		o.log.Debug().Int("utterance", n).Bool("changed", out != text).Msg("utterance corrected")
		var err error
		if o.json {
			err = enc.Encode(Line{Text: text, Corrected: out})
		} else {
			_, err = fmt.Fprintln(bw, out)
		}
		if err == nil {
			err = bw.Flush()
		}
		if err != nil {
			return fmt.Errorf("write utterance: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read utterances: %w", err)
	}
	return ctx.Err()
}
