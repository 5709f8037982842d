package generate

import (
	"errors"
	"fmt"

	"rtscorrect/internal/llm"
)

// tokenizationFailedError covers empty results, a retry that is still short,
// and prompts that do not fit the context window.
type tokenizationFailedError struct{ msg string }

func (e tokenizationFailedError) Error() string { return "tokenization failed: " + e.msg }

// ErrTokenizationFailed constructs a tokenization error.
func ErrTokenizationFailed(msg string) error { return tokenizationFailedError{msg: msg} }

// IsTokenizationFailed reports whether err is a tokenization-class failure.
func IsTokenizationFailed(err error) bool {
	var e tokenizationFailedError
	return errors.As(err, &e)
}

// ErrPromptTooLong is a tokenization failure for prompts that leave no room
// to generate within the context window.
func ErrPromptTooLong(promptTokens, contextSize int) error {
	return tokenizationFailedError{msg: fmt.Sprintf("prompt too long: %d tokens, context window %d", promptTokens, contextSize)}
}

type invalidTokenError struct {
	tok   llm.Token
	vocab int
}

func (e invalidTokenError) Error() string {
	return fmt.Sprintf("invalid token %d (vocab size %d)", e.tok, e.vocab)
}

// ErrInvalidToken reports a sampled id outside [0, vocab).
func ErrInvalidToken(tok llm.Token, vocab int) error {
	return invalidTokenError{tok: tok, vocab: vocab}
}

// IsInvalidToken reports whether err was caused by an out-of-vocabulary token.
func IsInvalidToken(err error) bool {
	var e invalidTokenError
	return errors.As(err, &e)
}

type decodeFailureError struct {
	status int32
	msg    string
}

func (e decodeFailureError) Error() string {
	if e.msg != "" {
		return "decode failure: " + e.msg
	}
	return fmt.Sprintf("decode failure: status %d", e.status)
}

// ErrDecodeFailure reports a non-zero decode status.
func ErrDecodeFailure(status int32) error { return decodeFailureError{status: status} }

// ErrDecodePanic reports a panic recovered inside the generation path.
func ErrDecodePanic(v any) error { return decodeFailureError{msg: fmt.Sprintf("panic: %v", v)} }

// IsDecodeFailure reports whether err indicates a failed decode step.
func IsDecodeFailure(err error) bool {
	var e decodeFailureError
	return errors.As(err, &e)
}

type timedOutError struct{ cause error }

func (e timedOutError) Error() string { return "generation timed out: " + e.cause.Error() }
func (e timedOutError) Unwrap() error { return e.cause }

// ErrGenerationTimedOut wraps the context error that stopped a generation.
func ErrGenerationTimedOut(cause error) error { return timedOutError{cause: cause} }

// IsGenerationTimedOut reports whether err indicates a deadline or cancellation.
func IsGenerationTimedOut(err error) bool {
	var e timedOutError
	return errors.As(err, &e)
}
