package services

// storeError reports a service sentinel for a repository failure. The repository error stays
// reachable through errors.As for logging, but its text (collection paths, project ids, gRPC
// status) never reaches the message.
type storeError struct {
	kind  error
	cause error
}

func newStoreError(kind, cause error) error {
	return &storeError{kind: kind, cause: cause}
}

func (e *storeError) Error() string { return e.kind.Error() }

func (e *storeError) Unwrap() []error { return []error{e.kind, e.cause} }
