package transport

import (
	"errors"
	"fmt"
)

// Common errors for control and transfer connections
var (
	// ErrConnection indicates a connection failed to open or broke mid-stream.
	// Every OpError matches it under errors.Is.
	ErrConnection = errors.New("connection error")

	// ErrUnsupportedProxy indicates an unknown proxy scheme
	ErrUnsupportedProxy = errors.New("unsupported proxy type")
)

// OpError represents a connection error with additional context
type OpError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports every OpError as an ErrConnection.
func (e *OpError) Is(target error) bool {
	return target == ErrConnection
}

// NewOpError creates a new OpError
func NewOpError(op, addr string, err error) *OpError {
	return &OpError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
