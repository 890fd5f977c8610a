package post

import (
	"errors"
	"fmt"
)

// ErrCodeInconsistentState marks an edit for a post the store never received.
const ErrCodeInconsistentState = "INCONSISTENT_STATE"

// InconsistentStateError is returned by EditPost when no post with the
// edited id is loaded. The store is left unchanged.
type InconsistentStateError struct {
	Code string
	ID   string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("%s: no loaded post with id %q", e.Code, e.ID)
}

// NewInconsistentStateError creates an InconsistentStateError for id.
func NewInconsistentStateError(id string) *InconsistentStateError {
	return &InconsistentStateError{Code: ErrCodeInconsistentState, ID: id}
}

// IsInconsistentState reports whether err is (or wraps) an InconsistentStateError.
func IsInconsistentState(err error) bool {
	var ie *InconsistentStateError
	return errors.As(err, &ie)
}
