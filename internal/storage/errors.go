package storage

import (
	"errors"
	"fmt"
)

// ErrCategoryNotFound reports a category that does not exist or belongs to another owner.
var ErrCategoryNotFound = errors.New("storage: category not found")

// Error wraps a failure of the database itself (connectivity, timeout, unexpected SQL error).
// Callers may retry the operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is picked up by handler summaries as err_code.
func (e *Error) Code() string { return "storage" }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
