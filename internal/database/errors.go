package database

import "fmt"

// StorageError wraps a relational-store failure. Storage failures are
// always fatal to the enclosing operation and must propagate; nothing in
// this codebase swallows one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
