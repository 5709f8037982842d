package manager

import "errors"

// modelLoadFailedError covers unreadable paths and backend load failures.
type modelLoadFailedError struct {
	path  string
	cause error
}

func (e modelLoadFailedError) Error() string {
	return "model load failed: " + e.path + ": " + e.cause.Error()
}
func (e modelLoadFailedError) Unwrap() error { return e.cause }

// ErrModelLoadFailed constructs a modelLoadFailedError.
func ErrModelLoadFailed(path string, cause error) error {
	return modelLoadFailedError{path: path, cause: cause}
}

// IsModelLoadFailed reports whether err came from the model load step.
func IsModelLoadFailed(err error) bool {
	var e modelLoadFailedError
	return errors.As(err, &e)
}

type contextCreationFailedError struct{ cause error }

func (e contextCreationFailedError) Error() string {
	return "context creation failed: " + e.cause.Error()
}
func (e contextCreationFailedError) Unwrap() error { return e.cause }

// ErrContextCreationFailed constructs a contextCreationFailedError.
func ErrContextCreationFailed(cause error) error { return contextCreationFailedError{cause: cause} }

// IsContextCreationFailed reports whether err came from the context creation step.
func IsContextCreationFailed(err error) bool {
	var e contextCreationFailedError
	return errors.As(err, &e)
}

type samplerCreationFailedError struct{ cause error }

func (e samplerCreationFailedError) Error() string {
	return "sampler creation failed: " + e.cause.Error()
}
func (e samplerCreationFailedError) Unwrap() error { return e.cause }

// ErrSamplerCreationFailed constructs a samplerCreationFailedError.
func ErrSamplerCreationFailed(cause error) error { return samplerCreationFailedError{cause: cause} }

// IsSamplerCreationFailed reports whether err came from the sampler creation step.
func IsSamplerCreationFailed(err error) bool {
	var e samplerCreationFailedError
	return errors.As(err, &e)
}

// notInitializedError is returned by Generate unless the manager is ready.
type notInitializedError struct{ state State }

func (e notInitializedError) Error() string { return "not initialized (state " + string(e.state) + ")" }

// ErrNotInitialized constructs a notInitializedError.
func ErrNotInitialized(s State) error { return notInitializedError{state: s} }

// IsNotInitialized reports whether err indicates the manager was not ready.
func IsNotInitialized(err error) bool {
	var e notInitializedError
	return errors.As(err, &e)
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ stage string }

func (e tooBusyError) Error() string { return "too busy: timed out waiting for " + e.stage }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// IsInitError reports whether err is one of the initialization failures.
func IsInitError(err error) bool {
	return IsModelLoadFailed(err) || IsContextCreationFailed(err) || IsSamplerCreationFailed(err)
}
