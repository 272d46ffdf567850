package bootstrap

import (
	"errors"
	"fmt"

	"github.com/km-arc/go-bedrock/framework/environment"
)

var (
	// ErrAlreadyConfigured is returned when a builder is given a second
	// container.
	ErrAlreadyConfigured = errors.New("bootstrap: container has already been set")

	// ErrNoContainer is returned by any operation that needs a container
	// before one was set or built.
	ErrNoContainer = errors.New("bootstrap: no container has been set")

	// ErrForeignParent is returned when a host singleton is registered but
	// the container's parent was not created by this builder.
	ErrForeignParent = errors.New("bootstrap: container parent was not created by this builder")

	// ErrPropertySourceAfterRefresh is returned when a property source is
	// registered on a refreshed container.
	ErrPropertySourceAfterRefresh = errors.New("bootstrap: cannot register a property source after the container has been refreshed")

	// ErrInvalidArgument is the property source bridge's argument error.
	ErrInvalidArgument = environment.ErrInvalidArgument
)

// ContainerConstructionError reports that a container could not be built
// with the requested strategy.
type ContainerConstructionError struct {
	Strategy Strategy
	Err      error
}

func (e *ContainerConstructionError) Error() string {
	return fmt.Sprintf("bootstrap: cannot construct %s container: %v", e.Strategy, e.Err)
}

func (e *ContainerConstructionError) Unwrap() error { return e.Err }

// UnknownStrategyError reports a strategy that is neither location nor class
// based.
type UnknownStrategyError struct {
	Strategy string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("bootstrap: unknown container strategy %q", e.Strategy)
}
