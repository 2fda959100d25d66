package memorystore

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned when a candidate has no content.
var ErrEmptyContent = errors.New("memory candidate has empty content")

// ErrNotFound indicates a record was not found in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("memory not found: %s", e.ID)
}
