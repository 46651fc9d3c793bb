package portal

import "errors"

var (
	// ErrUnknownProject indicates a selection outside the visible set.
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownTab indicates an unsupported navigation tab.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrPortalFailed indicates the portal is in its terminal error state.
	ErrPortalFailed = errors.New("portal failed")
	// ErrClosed indicates the portal was closed.
	ErrClosed = errors.New("portal closed")
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("portal already started")
)
