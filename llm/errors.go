package llm

import "errors"

// classified wraps an error with its retry class. Transient errors may
// succeed on retry; fatal errors (auth, bad request, misconfiguration)
// never will.
type classified struct {
	err   error
	fatal bool
}

func (e *classified) Error() string { return e.err.Error() }
func (e *classified) Unwrap() error { return e.err }

// NewTransientError marks an error as retryable.
func NewTransientError(err error) error {
	return &classified{err: err}
}

// NewFatalError marks an error as non-retryable.
func NewFatalError(err error) error {
	return &classified{err: err, fatal: true}
}

// IsFatal reports whether the error should stop retries and fallbacks.
func IsFatal(err error) bool {
	var c *classified
	return errors.As(err, &c) && c.fatal
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var c *classified
	return errors.As(err, &c) && !c.fatal
}
