package manager

import (
	"context"
	"time"

	"rtscorrect/internal/generate"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred. Cancellation while waiting is
// reported as a generation timeout wrapping ctx.Err().
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, generate.ErrGenerationTimedOut(err)
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, generate.ErrGenerationTimedOut(ctx.Err())
	case <-timer.C:
		return func() {}, tooBusyError{stage: "queue slot"}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, generate.ErrGenerationTimedOut(ctx.Err())
	case <-timer2.C:
		return func() {}, tooBusyError{stage: "generation slot"}
	}
}
