// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the request carries no verified user identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotConnected is returned when the user has not connected a GitHub account,
	// so no access token is available.
	ErrNotConnected = errors.New("github not connected")
)

// ErrInvalidRepoFormat is returned when a repository string is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// UpstreamError wraps a failed GitHub call that the operation could not do without.
type UpstreamError struct {
	Op     string
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("github %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("github %s failed for %s: %v", e.Op, e.Target, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
