package conversation

import "fmt"

// ErrNotFound indicates a turn was not found in the log.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("turn not found: %s", e.ID)
}
