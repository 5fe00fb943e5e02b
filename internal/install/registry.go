package install

import (
	"context"
	"errors"
	"fmt"

	"github.com/kattouf/mise/internal/version"
)

// ErrInstall matches every *Error.
var ErrInstall = errors.New("install failed")

// ErrExperimental is returned when a backend that is still experimental is
// used without the experimental setting.
var ErrExperimental = errors.New("backend is experimental")

// ErrNoMatch is wrapped by *Error when no known version satisfies the request.
var ErrNoMatch = errors.New("no matching version")

// Lister reports the versions of a tool present on this machine.
type Lister interface {
	InstalledVersions(ctx context.Context, tool string) ([]string, error)
}

// Registry is a Lister that can also install versions.
type Registry interface {
	Lister
	// EnsureInstalled makes a version satisfying spec available and returns
	// the concrete version string. Failures are reported as *Error.
	EnsureInstalled(ctx context.Context, tool string, spec version.Spec) (string, error)
}

// Error reports a failed EnsureInstalled call.
type Error struct {
	Tool string
	Spec version.Spec
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("installing %s@%s: %v", e.Tool, e.Spec, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInstall) match.
func (e *Error) Is(target error) bool { return target == ErrInstall }
