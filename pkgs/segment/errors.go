package segment

import "fmt"

// ValidationError reports caller input that cannot be partitioned.
// No partial partition is ever produced alongside it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
