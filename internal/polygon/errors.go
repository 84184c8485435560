package polygon

import (
	"errors"
	"fmt"
)

// TransportError is a failed HTTP exchange: network error or non-2xx status.
type TransportError struct {
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("polygon %s: http status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("polygon %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteAPIError is a response with status FAILED. Comment is the remote message verbatim.
type RemoteAPIError struct {
	Method  string
	Comment string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("polygon %s failed: %s", e.Method, e.Comment)
}

// ErrInvalidPackage is returned when a downloaded package is not a usable zip archive.
var ErrInvalidPackage = errors.New("invalid polygon package")

// ErrStatementNotFound is returned when the package holds no statement file.
var ErrStatementNotFound = errors.New("statement file not found in package")

// IsRemote reports whether err carries a remote FAILED response.
func IsRemote(err error) bool {
	var remote *RemoteAPIError
	return errors.As(err, &remote)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}
