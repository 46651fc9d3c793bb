package metrics

import "errors"

var (
	// ErrUnsupportedVersion indicates an encoded series with an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported metrics encoding version")
	// ErrMalformed indicates encoded metrics that cannot be parsed.
	ErrMalformed = errors.New("malformed metrics encoding")
)
