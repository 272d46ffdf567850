package container

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("container: no component registered")
	ErrTypeMismatch     = errors.New("container: component has the wrong type")
	ErrAlreadyRefreshed = errors.New("container: already refreshed")
	ErrParentAlreadySet = errors.New("container: parent already set")
	ErrUnknownKind      = errors.New("container: unknown definition kind")
	ErrBadDefinition    = errors.New("container: invalid component definition")
)

// RefreshError reports the component whose construction failed during
// Refresh.
type RefreshError struct {
	Component string
	Err       error
}

func (e *RefreshError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("container: refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("container: refresh failed at [%s]: %v", e.Component, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
