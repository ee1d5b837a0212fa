package models

import "golang.org/x/xerrors"

// Error taxonomy shared by the stores, the pipeline and the handlers.
// Duplicate observations are an AppendOutcome, not an error.
var (
	ErrInvalidTimestamp = xerrors.New("invalid timestamp")
	ErrDetectorFailure  = xerrors.New("detector failure")
	ErrNotFound         = xerrors.New("not found")
	ErrStorageFailure   = xerrors.New("storage failure")
	ErrInvalidInput     = xerrors.New("invalid input") // Rejected query parameters
)

// StorageError wraps a persistence failure. It matches ErrStorageFailure
// while keeping the driver error for logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorageFailure.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// Storage wraps err as a StorageError. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
