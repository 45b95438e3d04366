package completion

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup marks failures to build a client. They are fatal at startup.
	ErrSetup = errors.New("completion client setup failed")
	// ErrCompletion marks failures of a single completion call. The session
	// stays usable after one.
	ErrCompletion = errors.New("completion request failed")
)

// SetupError reports why a provider client could not be constructed.
type SetupError struct {
	Provider string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s client setup failed: %v", e.Provider, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSetup }

// CompletionError reports a failed completion call.
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool { return target == ErrCompletion }

func setupErr(provider string, format string, args ...any) error {
	return &SetupError{Provider: provider, Err: fmt.Errorf(format, args...)}
}
