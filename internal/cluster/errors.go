package cluster

import (
	"errors"
	"fmt"
)

// ErrConfig marks invalid cluster configuration. It is fatal at startup and
// never retried.
var ErrConfig = errors.New("cluster: invalid configuration")

// ErrBackend marks a cluster round trip that failed after the client's
// bounded retries were exhausted. Callers can test for it with errors.Is.
var ErrBackend = errors.New("cluster: backend failure")

// BackendError wraps the failure of a single cluster operation. It matches
// ErrBackend under errors.Is while keeping the underlying error (timeouts,
// connection failures) reachable through Unwrap.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cluster %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

func backendErr(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
