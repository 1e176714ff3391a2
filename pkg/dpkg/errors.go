package dpkg

import "errors"

// Every failure returned by this package wraps exactly one of these,
// so that callers can tell them apart with errors.Is.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrParse      = errors.New("invalid package")
	ErrLock       = errors.New("package database locked")
	ErrDependency = errors.New("missing dependencies")
	ErrCommand    = errors.New("command failed")
)
