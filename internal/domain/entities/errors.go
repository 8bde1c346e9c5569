package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrLockfileMissing is returned by resolvers when the lockfile they read does not exist.
	ErrLockfileMissing = errors.New("lockfile not found")
	// ErrNoResolver is returned when no registered resolver recognises the project.
	ErrNoResolver = errors.New("no supported manifest found")
	// ErrUnknownResolver is returned when a resolver is requested by an unregistered name.
	ErrUnknownResolver = errors.New("unknown ecosystem")
)

// ResolutionError wraps any failure of a resolver to produce a dependency graph.
type ResolutionError struct {
	Resolver string
	Err      error
}

// NewResolutionError wraps err unless it already is a ResolutionError.
func NewResolutionError(resolver string, err error) error {
	var existing *ResolutionError
	if errors.As(err, &existing) {
		return err
	}
	return &ResolutionError{Resolver: resolver, Err: err}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s dependencies: %v", e.Resolver, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FilesystemError wraps a failure to list a package directory or read a license file.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %q: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
